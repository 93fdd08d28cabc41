// Command actuator runs a standalone Actuator process: it listens on a
// wire port, shares an Id with its partner Sensor, and forwards commands
// to a discovered Environment.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/labctl/labctl/internal/actuator"
	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/health"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/telemetry"
)

var (
	host       string
	port       int
	name       string
	id         string
	model      string
	configPath string
	adminAddr  string
)

var rootCmd = &cobra.Command{
	Use:           "actuator",
	Short:         "Run a standalone Actuator process",
	Long:          `Run a standalone Actuator process: it listens on a wire port, shares an Id with its partner Sensor, and forwards commands to a discovered Environment.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runActuator,
}

func init() {
	rootCmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind the wire listener on")
	rootCmd.Flags().IntVar(&port, "port", 6502, "wire port to listen on")
	rootCmd.Flags().StringVar(&name, "name", "actuator", "human-friendly name advertised via mDNS-SD")
	rootCmd.Flags().StringVar(&id, "id", "", "shared Id with the partner Sensor (generated if empty)")
	rootCmd.Flags().StringVar(&model, "model", "thermo5000", "actuator model")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a tunables TOML file")
	rootCmd.Flags().StringVar(&adminAddr, "admin", "127.0.0.1:9092", "address for the /metrics and /healthz admin server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runActuator(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("[actuator] %w", err)
	}

	actuatorID := ident.Id(id)
	if actuatorID == "" {
		actuatorID = ident.NewId()
	}

	base := device.New(actuatorID, ident.Name(name), ident.ParseModel(model))
	a := actuator.New(base)
	a.SetDiscoveryInterval(cfg.Actuator.DiscoveryInterval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := health.New(health.ListenerCheck(base))
	go checker.Run(ctx)

	if cfg.Telemetry.Enabled {
		go func() {
			if err := telemetry.Serve(ctx, adminAddr, checker); err != nil {
				log.Printf("[actuator] admin server: %v", err)
			}
		}()
	}

	if err := a.Start(ctx, host, port); err != nil {
		return fmt.Errorf("[actuator] start: %w", err)
	}

	fmt.Printf("actuator %s (%s) listening on %s:%d\n", actuatorID, model, host, port)
	waitForShutdown(cancel)
	return nil
}

func waitForShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()
}
