package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/philsca/registrar/internal/app"
	"github.com/philsca/registrar/internal/database"
	"github.com/philsca/registrar/internal/seed"
	"github.com/philsca/registrar/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("registrar-seed", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var (
		configPath string
		opts       seed.Options
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration directory")
	fs.IntVar(&opts.Students, "students", 20, "Number of students to create")
	fs.IntVar(&opts.RequestsPerUser, "requests", 2, "Document requests per student")
	fs.IntVar(&opts.MessagesPerUser, "messages", 4, "Chat messages per student")
	fs.IntVar(&opts.News, "news", 5, "Announcements to publish")
	fs.IntVar(&opts.MaxDays, "days", 60, "Spread generated timestamps over this many days")
	fs.Int64Var(&opts.Seed, "seed", 0, "Random seed (0 picks one from the clock)")
	fs.StringVar(&opts.AdminEmail, "admin-email", "", "Create this admin account when missing")
	fs.StringVar(&opts.AdminPassword, "admin-password", os.Getenv("REGISTRAR_SEED_ADMIN_PASSWORD"), "Password for -admin-email")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		cfg *app.Config
		err error
	)
	if configPath == "" {
		cfg, err = app.LoadConfig()
	} else {
		cfg, err = app.LoadConfig(configPath)
	}
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort
	log := logger.WithModule("seed")

	db, err := database.Open(cfg.Database.ConnectionConfig())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	summary, err := seed.NewFactory(db, opts).Run(ctx)
	if err != nil {
		return err
	}

	log.Info("seed complete",
		zap.Int("admins", summary.Admins),
		zap.Int("students", summary.Students),
		zap.Int("requests", summary.Requests),
		zap.Int("request_logs", summary.Logs),
		zap.Int("messages", summary.Messages),
		zap.Int("news", summary.News),
	)
	return nil
}
