package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/liminal/internal/cli"
	"github.com/alexanderramin/liminal/internal/config"
	"github.com/alexanderramin/liminal/internal/db"
	"github.com/alexanderramin/liminal/internal/intelligence"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/logging"
	"github.com/alexanderramin/liminal/internal/monitor"
	"github.com/alexanderramin/liminal/internal/notify"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/alexanderramin/liminal/internal/service"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(build).ExecuteContext(ctx)
}

// build wires the application for one command run.
func build(ctx context.Context, opts cli.Options) (*cli.App, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Debug {
		cfg.Logging.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Debug)
	if err != nil {
		return nil, nil, err
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	// Wire repositories and services
	uow := db.NewSQLiteUnitOfWork(database)
	useCases := service.NewLogUseCaseObserver(logger)
	tasks := service.NewTaskService(repository.NewSQLiteTaskRepo(database), uow, useCases)
	chats := service.NewChatService(repository.NewSQLiteChatRepo(database), uow, useCases)

	// Wire the model client
	var observer llm.Observer = llm.NoopObserver{}
	if cfg.LLM.LogCalls || cfg.Logging.Debug {
		observer = llm.NewLogObserver(logger)
	}
	client, err := llm.NewClient(ctx, cfg.LLM, observer)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	hub := notify.NewHub(logger)
	exec := intelligence.NewExecutor(tasks, hub, logger)

	app := &cli.App{
		Config: cfg,
		Tasks:  tasks,
		Chats:  chats,
		Assistant: intelligence.NewAssistant(client, tasks, exec, intelligence.AssistantConfig{
			ContextTasks: cfg.Scoring.ContextTasks,
			StaleDays:    cfg.Scoring.StaleDays,
		}, logger, intelligence.WithChatStore(chats)),
		Scorer: intelligence.NewScorer(client, tasks, logger,
			intelligence.WithDailyCapacity(cfg.Scoring.DailyCapacityMinutes)),
		Monitor: monitor.New(tasks, chats, hub, monitor.Config{
			Interval:    cfg.Monitor.Interval,
			Window:      cfg.Monitor.Window,
			RunOnStart:  cfg.Monitor.RunOnStart,
			Concurrency: cfg.Monitor.Concurrency,
		}, logger),
		Hub:         hub,
		Log:         logger,
		Styled:      isTerminal(os.Stdout),
		Interactive: isTerminal(os.Stdin) && isTerminal(os.Stdout),
	}

	release := func() {
		hub.Close()
		database.Close()
		_ = logger.Sync()
	}
	logger.Debug("application wired", zap.String("db", cfg.DBPath), zap.String("provider", string(cfg.LLM.Provider)))
	return app, release, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
