// Package monitor periodically scans for overdue and soon-due tasks and posts
// an alert into each affected user's chat.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/intelligence"
	"github.com/alexanderramin/liminal/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config controls the scan loop.
type Config struct {
	Interval    time.Duration
	Window      time.Duration
	RunOnStart  bool
	Concurrency int
}

// Monitor posts deadline alerts. It never touches conversations or their
// confirmation gates; alerts land in persisted chat history only.
type Monitor struct {
	tasks    service.TaskService
	chats    service.ChatService
	notifier intelligence.Notifier
	cfg      Config
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Monitor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func New(tasks service.TaskService, chats service.ChatService, notifier intelligence.Notifier, cfg Config, log *zap.Logger, opts ...Option) *Monitor {
	if notifier == nil {
		notifier = intelligence.NoopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	m := &Monitor{
		tasks:    tasks,
		chats:    chats,
		notifier: notifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.Named("monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run scans every Interval until ctx is cancelled. Cycle errors are logged
// and the loop carries on.
func (m *Monitor) Run(ctx context.Context) error {
	if m.cfg.Interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %s", m.cfg.Interval)
	}
	if m.cfg.RunOnStart {
		m.cycle(ctx)
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	alerted, err := m.RunOnce(ctx)
	if err != nil {
		m.log.Warn("deadline scan failed", zap.Error(err))
		return
	}
	m.log.Debug("deadline scan complete", zap.Int("users_alerted", alerted))
}

// RunOnce performs a single scan and returns how many users were alerted.
func (m *Monitor) RunOnce(ctx context.Context) (int, error) {
	now := m.now()
	due, err := m.tasks.ListOpenDueBefore(ctx, now.Add(m.cfg.Window))
	if err != nil {
		return 0, fmt.Errorf("listing due tasks: %w", err)
	}

	byUser := make(map[string][]*domain.Task)
	var users []string
	for _, t := range due {
		if _, ok := byUser[t.UserID]; !ok {
			users = append(users, t.UserID)
		}
		byUser[t.UserID] = append(byUser[t.UserID], t)
	}
	sort.Strings(users)

	results := make([]bool, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, userID := range users {
		g.Go(func() error {
			msg := AlertMessage(byUser[userID], now)
			if msg == "" {
				return nil
			}
			if _, err := m.chats.PostAlert(gctx, userID, msg); err != nil {
				m.log.Warn("posting deadline alert failed", zap.String("user_id", userID), zap.Error(err))
				return nil
			}
			m.notifier.Broadcast(intelligence.EventRefresh, userID)
			results[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	alerted := 0
	for _, ok := range results {
		if ok {
			alerted++
		}
	}
	return alerted, nil
}

// AlertMessage renders the overdue and due-soon sections for one user's
// tasks. It returns "" when nothing is due.
func AlertMessage(tasks []*domain.Task, now time.Time) string {
	var overdue, soon []*domain.Task
	for _, t := range tasks {
		if t.DueDate == nil || t.IsDone() {
			continue
		}
		if t.DueDate.Before(now) {
			overdue = append(overdue, t)
		} else {
			soon = append(soon, t)
		}
	}
	if len(overdue) == 0 && len(soon) == 0 {
		return ""
	}
	byDue := func(list []*domain.Task) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].DueDate.Before(*list[j].DueDate) })
	}
	byDue(overdue)
	byDue(soon)

	var b strings.Builder
	if len(overdue) > 0 {
		b.WriteString("🚨 **Overdue Tasks:**\n")
		for _, t := range overdue {
			fmt.Fprintf(&b, "- %s (Due: %s)\n", t.Title, t.DueDate.Format("2006-01-02 15:04"))
		}
	}
	if len(soon) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("⏰ **Due Soon (<24h):**\n")
		for _, t := range soon {
			fmt.Fprintf(&b, "- %s (Due: %s)\n", t.Title, t.DueDate.Format("15:04"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
