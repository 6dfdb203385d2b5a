// Package serve starts the HTTP service: the conversion API and the icon
// tuner.
package serve

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/convert"
	"github.com/gearmap/gearmap-go/internal/filestore"
	"github.com/gearmap/gearmap-go/internal/httpserver"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/mapping"
	"github.com/gearmap/gearmap-go/internal/observability"
	"github.com/gearmap/gearmap-go/internal/render"
	"github.com/gearmap/gearmap-go/internal/telemetry"
)

// Command creates the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion service",
		Long:  "Start the HTTP service exposing document conversion, downloads and the icon tuner API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port to listen on")
	cmd.Flags().IntVar(&settings.WebServer.FileTTL, "filettl", viper.GetInt("webserver.filettl"), "Minutes converted files stay downloadable")
	cmd.Flags().StringVar(&settings.Icons.ImageDir, "imagedir", viper.GetString("icons.imagedir"), "Directory holding embeddable gear images")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// runServer wires the service together and blocks until shutdown.
func runServer(ctx context.Context, settings *conf.Settings) error {
	if _, err := telemetry.Init(settings); err != nil {
		return fmt.Errorf("telemetry initialization failed: %w", err)
	}
	defer telemetry.Shutdown(5 * time.Second)

	table, err := mapping.Load()
	if err != nil {
		return fmt.Errorf("mapping table failed to load: %w", err)
	}

	store := iconstore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("icon store failed to open: %w", err)
	}
	defer store.Close()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics initialization failed: %w", err)
	}

	renderer := render.New(settings)
	engine := convert.New(store, table, renderer, metrics)
	files := filestore.New(settings)

	server, err := httpserver.New(settings, store, files, engine, renderer, table, metrics)
	if err != nil {
		return fmt.Errorf("http server initialization failed: %w", err)
	}

	return server.Run(ctx)
}
