package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notebook/config"
	"notebook/model"
	"notebook/platform"
	"notebook/services"
	"notebook/tui"
	"notebook/usecase"

	tea "github.com/charmbracelet/bubbletea"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "notebook:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			logger.Error("failed to close backend", "error", err)
		}
	}()

	if !cfg.Authenticated() {
		if err := backend.PrepareScope(ctx, model.Scope{}); err != nil {
			logger.Warn("failed to prepare shared scope", "error", err)
		}
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           setupRouter(backend, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("image server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("image server failed", "error", err)
		}
	}()

	program := tea.NewProgram(tui.New(ctx, buildDeps(cfg, backend, logger)), tea.WithAltScreen(), tea.WithContext(ctx))

	dispatcher := services.NewReminderDispatcher(backend.Reminders, services.NotifierFunc(func(reminder model.Reminder) {
		program.Send(tui.ReminderFiredMsg{Reminder: reminder})
	}), cfg.ReminderPollInterval, logger)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reminder dispatcher stopped", "error", err)
		}
	}()

	_, runErr := program.Run()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("image server shutdown failed", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI failed: %w", runErr)
	}
	logger.Info("shutdown complete")
	return nil
}

func buildDeps(cfg *config.Config, backend *Backend, logger *slog.Logger) tui.Deps {
	scheduler := services.NewReminderScheduler(backend.Reminders, cfg.NotificationsEnabled, logger)
	camera := platform.NewCommandCamera(cfg.CameraCommand)
	library := platform.NewFileLibrary()

	deps := tui.Deps{
		NewList: func(session model.Session, alerts usecase.Alerter) *usecase.NoteListController {
			return usecase.NewNoteListController(session, backend.Notes, scheduler, alerts, logger)
		},
		NewDetail: func(session model.Session, note model.Note, alerts usecase.Alerter) *usecase.NoteDetailController {
			return usecase.NewNoteDetailController(session, note, usecase.DetailDeps{
				Notes:              backend.Notes,
				Images:             backend.Images,
				Camera:             camera,
				Library:            library,
				Alerts:             alerts,
				CascadeImageDelete: cfg.CascadeImageDelete,
			}, logger)
		},
		Logger: logger,
	}

	if cfg.Authenticated() {
		tokens := services.NewTokenIssuer(cfg.Auth.JWTSecretKey, cfg.Auth.JWTExpirationTime)
		deps.Auth = &scopedAuth{
			AuthService: services.NewAuthService(backend.Users, tokens, backend.Blacklist, logger),
			backend:     backend,
			logger:      logger,
		}
	}
	return deps
}

// scopedAuth indexes a user's note collection as soon as they are signed in.
type scopedAuth struct {
	*services.AuthService
	backend *Backend
	logger  *slog.Logger
}

func (a *scopedAuth) SignUp(ctx context.Context, creds model.Credentials) (model.Session, error) {
	session, err := a.AuthService.SignUp(ctx, creds)
	if err == nil {
		a.prepare(ctx, session)
	}
	return session, err
}

func (a *scopedAuth) SignIn(ctx context.Context, creds model.Credentials) (model.Session, error) {
	session, err := a.AuthService.SignIn(ctx, creds)
	if err == nil {
		a.prepare(ctx, session)
	}
	return session, err
}

func (a *scopedAuth) prepare(ctx context.Context, session model.Session) {
	if err := a.backend.PrepareScope(ctx, session.Scope()); err != nil {
		a.logger.Warn("failed to prepare user scope", "user_id", session.UserID, "error", err)
	}
}
