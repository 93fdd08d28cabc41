// Command environment runs a standalone Environment process: it listens
// on a wire port (with an optional identity override) and creates a data
// generator for each Sensor that contacts it.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/environment"
	"github.com/labctl/labctl/internal/health"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/telemetry"
)

var (
	host       string
	port       int
	name       string
	id         string
	configPath string
	adminAddr  string
)

var rootCmd = &cobra.Command{
	Use:           "environment",
	Short:         "Run a standalone Environment process",
	Long:          `Run a standalone Environment process: it listens on a wire port (with an optional identity override) and creates a data generator for each Sensor that contacts it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEnvironment,
}

func init() {
	rootCmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind the wire listener on")
	rootCmd.Flags().IntVar(&port, "port", 6500, "wire port to listen on")
	rootCmd.Flags().StringVar(&name, "name", "environment", "human-friendly name advertised via mDNS-SD")
	rootCmd.Flags().StringVar(&id, "id", "", "stable Id override (generated if empty)")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a tunables TOML file")
	rootCmd.Flags().StringVar(&adminAddr, "admin", "127.0.0.1:9090", "address for the /metrics and /healthz admin server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runEnvironment(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("[environment] %w", err)
	}

	envID := ident.Id(id)
	if envID == "" {
		envID = ident.NewId()
	}

	base := device.New(envID, ident.Name(name), ident.ModelEnvironment)
	env := environment.New(base)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := health.New(health.ListenerCheck(base))
	go checker.Run(ctx)

	if cfg.Telemetry.Enabled {
		go func() {
			if err := telemetry.Serve(ctx, adminAddr, checker); err != nil {
				log.Printf("[environment] admin server: %v", err)
			}
		}()
	}

	if err := env.Start(ctx, host, port); err != nil {
		return fmt.Errorf("[environment] start: %w", err)
	}

	fmt.Printf("environment %s listening on %s:%d\n", envID, host, port)
	waitForShutdown(cancel)
	return nil
}

func waitForShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()
}
