// Command budgetctl manages ledger records from the terminal against the
// configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/ledger"
	"budget/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	a := &app{
		out:      os.Stdout,
		currency: cfg.Currency,
		open: func(ctx context.Context) (*ledger.Service, func() error, error) {
			return openService(ctx, cfg)
		},
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range a.commands() {
		commander.Register(c, "ledger")
	}

	flag.StringVar(&a.user, "user", cfg.DevUserID, "Owner of the records (defaults to DEV_USER_ID).")
	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openService connects the configured backend. Diagnostics go to stderr so
// command output stays scriptable.
func openService(ctx context.Context, cfg *config.Config) (*ledger.Service, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := log.New(log.Config{
		Level:     slog.LevelWarn,
		Component: log.ComponentApp,
		Output:    os.Stderr,
	})

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", backendCfg.Type, err)
	}

	opts := []ledger.Option{ledger.WithLogger(logger)}
	cleanup := res.Cleanup
	if client := cli.OpenAMQP(logger, cfg); client != nil {
		opts = append(opts, ledger.WithPublisher(client))
		cleanup = func() error {
			_ = client.Close()
			return res.Cleanup()
		}
	}
	return ledger.NewService(res.Store, opts...), cleanup, nil
}
