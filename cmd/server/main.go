package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/roomcast/roomcast/internal/chat"
	"github.com/roomcast/roomcast/internal/config"
	"github.com/roomcast/roomcast/internal/transport/tcp"
	"github.com/roomcast/roomcast/internal/transport/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(log)

	reg := chat.NewRegistry(cfg.Rooms, cfg.QueueSize, log)
	disp := chat.NewDispatcher(reg, log)

	tcpSrv := tcp.New(cfg.TCPAddr, reg, disp, cfg.MaxFrameSize, log)
	wsSrv := ws.New(cfg.WSAddr, reg, disp, log)

	errChan := make(chan error, 2)
	go func() { errChan <- tcpSrv.Start() }()
	go func() { errChan <- wsSrv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	case sig := <-sigChan:
		log.Info("shutting down", "signal", sig.String())
	}

	tcpSrv.Stop()
	wsSrv.Stop()
	log.Info("server stopped")
}
