// Command blinkdb-server starts the storage engine behind the RESP-subset
// TCP front end, loading any existing snapshot on start and saving one on
// clean shutdown.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"blinkdb/internal/config"
	"blinkdb/internal/keyspace"
	"blinkdb/internal/log"
	"blinkdb/internal/persistence"
	"blinkdb/internal/server"
)

func main() {
	app := &cli.App{
		Name:  "blinkdb-server",
		Usage: "an in-memory key/value store with a RESP-subset wire protocol",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: config.DefaultAddr, Usage: "TCP listen address"},
			&cli.StringFlag{Name: "data-file", Value: config.DefaultDataFile, Usage: "snapshot file path"},
			&cli.IntFlag{Name: "capacity", Value: config.DefaultCapacity, Usage: "max live keys before eviction"},
			&cli.IntFlag{Name: "filter-bits", Value: config.DefaultFilterWidth, Usage: "membership filter width in bits"},
			&cli.IntFlag{Name: "rate-limit", Value: config.DefaultRateLimitRPS, Usage: "per-connection commands/sec"},
			&cli.IntFlag{Name: "rate-burst", Value: config.DefaultRateBurst, Usage: "per-connection burst size"},
			&cli.StringFlag{Name: "log-file-prefix", Value: "", Usage: "if set, rotate logs to <prefix>.info.log/<prefix>.error.log"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Errorf("blinkdb-server: %v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if prefix := c.String("log-file-prefix"); prefix != "" {
		log.InitFileLogger(prefix, 50, 5, 30, true)
	} else {
		log.DefaultLogger()
	}

	cfg := config.New(
		c.String("addr"),
		c.String("data-file"),
		c.Int("capacity"),
		c.Int("filter-bits"),
		c.Int("rate-limit"),
		c.Int("rate-burst"),
	)

	ks := keyspace.New(cfg)
	if err := persistence.Load(cfg.DataFile, ks); err != nil {
		// IoFailure: logged, does not crash; load-failure yields empty store.
		log.Errorf("persistence: load failed, starting empty: %v", err)
		ks = keyspace.New(cfg)
	}

	srv := server.New(cfg, ks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case sig := <-sigCh:
		log.Infof("blinkdb-server: received %s, shutting down", sig)
		cancel()
		srv.Close()
	case err := <-errCh:
		if err != nil {
			cancel()
			return err
		}
	}

	if err := persistence.Save(cfg.DataFile, ks); err != nil {
		log.Errorf("persistence: save failed: %v", err)
	}
	return nil
}
