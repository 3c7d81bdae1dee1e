package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveBuild bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the generated site",
	Long: `The serve command serves the output directory, the load-more endpoint and
the fallback for posts that are not part of the last build. With --build it
runs a full build first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			siteConfig.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := newApp()
		defer app.Close()

		if serveBuild {
			logger.Info("performing initial build")
			res, err := app.Build(ctx)
			if err != nil {
				return err
			}
			logger.Info("initial build finished", "pages", res.Pages, "duration", res.Duration)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- app.Start()
		}()
		logger.Info("serving", "addr", siteConfig.Addr, "output", siteConfig.OutputDir)

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Echo.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":3000", "listen address")
	serveCmd.Flags().BoolVar(&serveBuild, "build", false, "build the site before serving")
}
