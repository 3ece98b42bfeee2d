package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/ipc"
	"lectern/internal/lessons"
	"lectern/internal/logging"
	"lectern/internal/queue"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg.QueueDatabasePath())
	if err != nil {
		log.Fatalf("open queue store: %v", err)
	}

	lessonStore, err := lessons.OpenStore(cfg.LessonDatabasePath())
	if err != nil {
		store.Close()
		log.Fatalf("open lesson store: %v", err)
	}

	d, err := daemon.New(cfg, store, lessonStore, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPathOrDefault(), d, logger)
	if err != nil {
		log.Fatalf("start IPC server: %v", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("lecternd shutting down")
}
