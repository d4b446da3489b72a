// Command sentineld serves goSentinel over HTTP.
//
//	sentineld [serve] [-config sentineld.toml] [-env .env]
//	sentineld useradd [-config ...] [-role r] [-password-stdin] <username>
//	sentineld hash [-algorithm sha256] [-password-stdin]
//
// Settings come from the TOML file, then an optional dotenv file, then
// SENTINEL_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	goSentinel "github.com/MrEthical07/goSentinel"
	"github.com/MrEthical07/goSentinel/credstore"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "sentineld: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out, errOut io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return serve(args, errOut)
	case "useradd":
		return useradd(args, in, out)
	case "hash":
		return hashCmd(args, in, out, errOut)
	default:
		return fmt.Errorf("unknown command %q (want serve, useradd or hash)", cmd)
	}
}

// loadDotenv is best effort: a missing file leaves the real environment as is.
func loadDotenv(path string) {
	if path == "" {
		return
	}
	_ = godotenv.Load(path)
}

func serve(args []string, errOut io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "", "path to sentineld.toml")
	envFile := fs.String("env", ".env", "optional dotenv file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loadDotenv(*envFile)
	cfg, err := loadConfig(*configPath, os.LookupEnv)
	if err != nil {
		return err
	}

	lg, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			lg.Warn("closing credential store failed", zap.Error(err))
		}
	}()

	engine, err := buildEngine(cfg, store, lg, os.Stdout)
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	for _, w := range report.Warnings {
		lg.Warn("security posture", zap.String("warning", w))
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newHandler(engine, lg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	lg.Info("sentineld listening",
		zap.String("addr", cfg.Listen),
		zap.String("store", cfg.Store.Backend),
		zap.String("digest", report.DigestAlgorithm),
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http server shutdown failed", zap.Error(err))
	}
	return nil
}

// buildEngine wires the store, logger and audit sink into an Engine.
func buildEngine(cfg daemonConfig, store credstore.Store, lg *zap.Logger, auditOut io.Writer) (*goSentinel.Engine, error) {
	b := goSentinel.New().
		WithConfig(cfg.engineConfig()).
		WithStore(store).
		WithLogger(lg)

	if cfg.Audit.Enabled {
		switch cfg.Audit.Sink {
		case "stdout":
			b.WithAuditSink(goSentinel.NewJSONWriterSink(auditOut))
		default:
			b.WithAuditSink(goSentinel.NewZapSink(lg))
		}
	}
	return b.Build()
}
