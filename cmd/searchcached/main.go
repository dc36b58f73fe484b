// Command searchcached serves cached social media lookups over HTTP.
//
// All configuration comes from the environment; see package config for the
// variables it reads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/searchcache/config"
	"github.com/jonwraymond/searchcache/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print the version and exit")
	checkConfig := flag.Bool("check-config", false, "validate the configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(config.ServiceName, version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *checkConfig); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.ServiceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, checkOnly bool) error {
	resolver, err := config.NewResolver(os.LookupEnv)
	if err != nil {
		return err
	}
	defer resolver.Close()

	cfg, err := config.Load(ctx, os.LookupEnv, resolver)
	if err != nil {
		return err
	}
	if checkOnly {
		fmt.Println("configuration is valid")
		return nil
	}

	app, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	logger := app.logger
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "server starting",
			observe.Field{Key: "addr", Value: srv.Addr},
			observe.Field{Key: "version", Value: version},
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info(context.Background(), "server stopped")
	return err
}
