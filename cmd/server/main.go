package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/pydown-go/api"
	"github.com/yourusername/pydown-go/api/handlers"
	"github.com/yourusername/pydown-go/internal/app"
	"github.com/yourusername/pydown-go/internal/bootstrap"
	"github.com/yourusername/pydown-go/pkg/logger"
)

var (
	foreground  = flag.Bool("foreground", false, "Run in the foreground instead of detaching")
	configPath  = flag.String("config", "", "Config file path")
	variantName = flag.String("variant", "", "Variant preset (classic, compact)")
)

func main() {
	flag.Parse()

	if !*foreground {
		startAsDaemon()
		return
	}

	if err := runServer(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// startAsDaemon re-executes the binary in the foreground, detached from this terminal
func startAsDaemon() {
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	args := append([]string{"-foreground"}, os.Args[1:]...)
	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	detach(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", os.DevNull, err)
		os.Exit(1)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
}

func runServer() error {
	config, err := app.LoadConfig(*configPath, *variantName)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Download log lines are echoed to stdout alongside the persisted log
	rt, err := bootstrap.New(config, logger.NewConsoleSink(os.Stdout))
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.Logger

	log.Info("Starting PyDown server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("variant", config.Variant.Name),
		zap.String("output_dir", config.Download.OutputDir),
		zap.Bool("persist_log", config.Variant.PersistLog))

	if err := os.MkdirAll(config.Download.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := app.NewJobManager(rt.Orchestrator, rt.LogSink, log)
	router := api.SetupRouter(jobs, config, rt.LogReader, rt.Metrics, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Shutdown(shutdownCtx); err != nil {
		log.Warn("Cancelled running downloads", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
