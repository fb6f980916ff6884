package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qqsync/webui-bridge/internal/api"
	"github.com/qqsync/webui-bridge/internal/biz/domain"
	"github.com/qqsync/webui-bridge/internal/biz/usecase"
	"github.com/qqsync/webui-bridge/internal/conf"
	"github.com/qqsync/webui-bridge/internal/data"
	"github.com/qqsync/webui-bridge/internal/qqsync"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := conf.LoadFromEnv()

	webuiConfig, err := conf.NewFileStore(
		filepath.Join(config.Storage.DataDir, "webui_config.json"),
		map[string]any{
			"server": map[string]any{
				"host": config.Server.Host,
				"port": config.Server.Port,
			},
		},
	)
	if err != nil {
		log.Fatalf("Failed to load webui config: %v", err)
	}
	config.ApplyFile(webuiConfig)

	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	messageLog := data.NewMessageLog(config.Storage.MessageDir)
	registry := data.NewComponentRegistry()

	component, err := qqsync.New(qqsync.Options{
		ConfigPath:    filepath.Join(config.Storage.DataDir, "qqsync_config.json"),
		BindingDBPath: config.Storage.BindingDBPath,
		AuditDBPath:   config.Storage.AuditDBPath,
		NapcatWS:      config.Component.NapcatWS,
		AccessToken:   config.Component.AccessToken,
	})
	if err != nil {
		log.Fatalf("Failed to create qqsync component: %v", err)
	}
	registry.Register(config.Component.Name, component)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	component.Start(ctx, func(sender, content string) {
		msg := domain.ChatMessage{
			Timestamp: time.Now().Unix(),
			Sender:    sender,
			Content:   content,
			Direction: domain.DirectionQQToGame,
		}
		if err := messageLog.Append(msg); err != nil {
			log.Printf("[Main] append group message: %v", err)
		}
	})

	adapter := usecase.NewCapabilityAdapter(registry, config.Component.Name, config.Component.HandleTTL)
	stats := usecase.NewStatisticsAggregator(messageLog, adapter)

	handler := api.NewHandler(adapter, messageLog, stats, nil)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		Handler: api.NewRouter(handler),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Main] dashboard listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigCh:
		log.Printf("[Main] received %s, shutting down", sig)
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] server shutdown: %v", err)
	}
	if err := adapter.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] adapter shutdown: %v", err)
	}
	cancel()
	if err := component.Close(); err != nil {
		log.Printf("[Main] component close: %v", err)
	}
	if err := messageLog.Close(); err != nil {
		log.Printf("[Main] message log close: %v", err)
	}
	log.Println("[Main] shutdown complete")
}
