package cli

import (
	"context"
	"time"

	"github.com/alexanderramin/liminal/internal/config"
	"github.com/alexanderramin/liminal/internal/intelligence"
	"github.com/alexanderramin/liminal/internal/monitor"
	"github.com/alexanderramin/liminal/internal/notify"
	"github.com/alexanderramin/liminal/internal/service"
	"go.uber.org/zap"
)

// App holds the collaborators CLI commands run against.
type App struct {
	Config    *config.Config
	Tasks     service.TaskService
	Chats     service.ChatService
	Assistant *intelligence.Assistant
	Scorer    *intelligence.Scorer
	Monitor   *monitor.Monitor
	Hub       *notify.Hub
	Log       *zap.Logger

	// Styled enables glamour and lipgloss output; false when stdout is not a
	// terminal.
	Styled bool
	// Interactive enables the arrow-key confirmation picker; true only when
	// stdin is a terminal.
	Interactive bool
	Now         func() time.Time
}

// Options carries the global flags.
type Options struct {
	ConfigPath string
	DBPath     string
	User       string
	Debug      bool
}

// Builder wires an App for one command run. release frees what it opened.
type Builder func(ctx context.Context, opts Options) (app *App, release func(), err error)
