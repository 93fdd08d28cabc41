// Command controller runs a standalone Controller process: it listens on
// a wire port, takes an optional identity override and a container-mode
// toggle, and discovers every Sensor and Actuator on the LAN itself.
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
	"github.com/labctl/labctl/internal/controller"
	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/health"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/telemetry"
)

var (
	host          string
	port          int
	name          string
	id            string
	containerMode bool
	configPath    string
	adminAddr     string
)

var rootCmd = &cobra.Command{
	Use:           "controller",
	Short:         "Run a standalone Controller process",
	Long:          `Run a standalone Controller process: it listens on a wire port, takes an optional identity override and a container-mode toggle, and discovers every Sensor and Actuator on the LAN itself.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runController,
}

func init() {
	rootCmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind the wire listener on")
	rootCmd.Flags().IntVar(&port, "port", 6565, "wire port to listen on")
	rootCmd.Flags().StringVar(&name, "name", "controller", "human-friendly name advertised via mDNS-SD")
	rootCmd.Flags().StringVar(&id, "id", "", "stable Id override (generated if empty)")
	rootCmd.Flags().BoolVar(&containerMode, "container-mode", false, "rewrite the UI page's backend URL to localhost:6565")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a tunables TOML file")
	rootCmd.Flags().StringVar(&adminAddr, "admin", "127.0.0.1:9093", "address for the /metrics and /healthz admin server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("[controller] %w", err)
	}

	controllerID := ident.Id(id)
	if controllerID == "" {
		controllerID = ident.NewId()
	}

	base := device.New(controllerID, ident.Name(name), ident.ModelController)
	c := controller.New(base, containerMode || cfg.Controller.ContainerMode)
	c.SetPollInterval(cfg.Controller.PollInterval())
	c.SetDiscoveryInterval(cfg.Controller.DiscoveryInterval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := health.New(health.ListenerCheck(base))
	go checker.Run(ctx)

	if cfg.Telemetry.Enabled {
		go func() {
			if err := telemetry.Serve(ctx, adminAddr, checker); err != nil {
				log.Printf("[controller] admin server: %v", err)
			}
		}()
	}

	if err := c.Start(ctx, host, port); err != nil {
		return fmt.Errorf("[controller] start: %w", err)
	}

	fmt.Printf("controller %s listening on %s:%d (ui: http://%s:%d/ui)\n", controllerID, host, port, host, port)
	waitForShutdown(cancel)
	return nil
}

func waitForShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()
}
