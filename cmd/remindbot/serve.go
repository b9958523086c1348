package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remindbot/internal/app"
	"remindbot/internal/app/deps"
	"remindbot/internal/app/services"
	dl "remindbot/internal/core/domain/logging"
	"remindbot/internal/scheduler"
)

type ServeCmd struct {
	ShutdownTimeout time.Duration `help:"How long to wait for in-flight work on shutdown." default:"20s"`
}

func (cmd *ServeCmd) Run() error {
	deps, shutdownDeps := deps.InitDeps()
	services := services.InitServices(deps)

	reminderScheduler, err := scheduler.New(deps.Logger, services.ScanReminders, deps.Config.RemindersScanPeriod)
	if err != nil {
		shutdownDeps()
		return err
	}

	httpServer := app.InitHttpServer(deps, services)
	go start(httpServer, deps)
	reminderScheduler.Start()

	stopCh, closeCh := createChannel()
	defer closeCh()

	<-stopCh
	return shutdown(context.Background(), cmd.ShutdownTimeout, httpServer, reminderScheduler, deps, shutdownDeps)
}

func createChannel() (chan os.Signal, func()) {
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	return stopCh, func() {
		signal.Stop(stopCh)
		close(stopCh)
	}
}

func start(server *http.Server, deps *deps.Deps) {
	deps.Logger.Info(
		context.Background(),
		"HTTP server has started.",
		dl.Entry("address", server.Addr),
		dl.Entry("isTestMode", deps.Config.IsTestMode),
		dl.Entry("timezone", deps.Config.Location.String()),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	} else {
		deps.Logger.Info(context.Background(), "HTTP service is stopping gracefully.")
	}
}

func shutdown(
	ctx context.Context,
	timeout time.Duration,
	server *http.Server,
	reminderScheduler *scheduler.Scheduler,
	deps *deps.Deps,
	shutDownDeps func(),
) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := server.Shutdown(ctx)
	reminderScheduler.Stop(ctx)

	deps.Logger.Info(ctx, "HTTP server has shutdowned.")
	shutDownDeps()
	return err
}
