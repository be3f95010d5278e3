package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zrecord/internal/audit"
	"github.com/zarlcorp/zrecord/internal/config"
	"github.com/zarlcorp/zrecord/internal/persist"
	"github.com/zarlcorp/zrecord/internal/server"
	"github.com/zarlcorp/zrecord/internal/tui"
	"golang.org/x/term"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zrecord"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	if len(os.Args) > 1 {
		runCLI(os.Args[1])
		_ = app.Close()
		return
	}

	if err := run(ctx); err != nil {
		slog.Error("zrecord", "err", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		os.Exit(1)
	}
}

func runCLI(cmd string) {
	switch cmd {
	case "version":
		fmt.Printf("zrecord %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "zrecord: unknown command %q\n", cmd)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	auditLog, closer, err := audit.Open(cfg.LogPath())
	if err != nil {
		return err
	}
	defer closer.Close()

	codec := persist.New(
		zfilesystem.NewOSFileSystem(cfg.DataDir),
		persist.WithPrimary(cfg.DataFile),
		persist.WithBackup(cfg.BackupFile),
		persist.WithLogger(slog.Default()),
	)

	loop := func(ctx context.Context, in io.Reader, out io.Writer) error {
		srv := server.New(codec, out,
			server.WithAudit(auditLog),
			server.WithStartupDelay(cfg.StartupDelay),
			server.WithLogger(slog.Default()),
		)
		return srv.Run(ctx, in)
	}

	if cfg.TUI && isTerminal(os.Stdin) && isTerminal(os.Stdout) {
		return tui.Run(ctx, loop)
	}
	// cancellation is noticed before the next command is read
	return loop(ctx, os.Stdin, os.Stdout)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
