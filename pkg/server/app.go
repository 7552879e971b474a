package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	applogger "RegimeDash/pkg/logger"
)

// HTTPServer is the part of pkg/http.Server the app drives.
type HTTPServer interface {
	Start() error
	Stop(ctx context.Context) error
	ShutdownTimeout() time.Duration
}

// Worker is a background loop started before the HTTP server and stopped after it.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}

// Session is closed between the HTTP server and the workers so in-flight
// sequences still reach the sinks.
type Session interface {
	Close()
}

// App encapsulates the entire application lifecycle.
type App struct {
	log        *applogger.Logger
	httpServer HTTPServer
	session    Session
	workers    []Worker
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App instance with all dependencies.
func New(l *applogger.Logger, httpServer HTTPServer, session Session, workers ...Worker) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		log:        l,
		httpServer: httpServer,
		session:    session,
		workers:    workers,
	}
}

// AddCloser registers infrastructure to close last, in registration order.
func (a *App) AddCloser(name string, c io.Closer) {
	if c == nil {
		return
	}
	a.closers = append(a.closers, namedCloser{name: name, c: c})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	workCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, w := range a.workers {
		w.Start(workCtx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}
	a.log.Info("regimedash started")

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// shutdown gracefully stops all services.
func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.session != nil {
		a.session.Close()
	}

	for _, w := range a.workers {
		w.Stop()
	}

	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("component", nc.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
