package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/repository"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// UseCaseEvent describes one finished service call.
type UseCaseEvent struct {
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
}

// UseCaseObserver is notified after every task or chat mutation.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *zap.Logger
}

// NewLogUseCaseObserver logs each event under the "service" logger. Caller
// mistakes (unknown ids, invalid fields) log at warn; anything else that
// fails logs at error.
func NewLogUseCaseObserver(logger *zap.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{logger: logger.Named("service")}
}

func (o *logUseCaseObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	fields := []zap.Field{
		zap.String("use_case", e.Name),
		zap.Duration("took", e.Duration),
	}
	for k, v := range e.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	if ce := o.logger.Check(levelFor(e.Err), "service_use_case"); ce != nil {
		ce.Write(fields...)
	}
}

func levelFor(err error) zapcore.Level {
	switch {
	case err == nil:
		return zapcore.InfoLevel
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ErrAlreadyDone),
		errors.Is(err, domain.ErrTitleRequired),
		errors.Is(err, domain.ErrInvalidScore),
		errors.Is(err, domain.ErrInvalidStatus):
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}

// observe is deferred at the top of a use case with a pointer to its named
// error result. fields may be filled in while the use case runs.
func observe(ctx context.Context, obs UseCaseObserver, name string, startedAt time.Time, fields map[string]any, errp *error) {
	e := UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Fields:    fields,
	}
	if errp != nil {
		e.Err = *errp
	}
	e.Success = e.Err == nil
	obs.ObserveUseCase(ctx, e)
}
