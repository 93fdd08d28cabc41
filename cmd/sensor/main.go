// Command sensor runs a standalone Sensor process: it listens on a wire
// port, shares an Id with its partner Actuator, and polls the Environment
// it discovers.
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
	"github.com/labctl/labctl/internal/health"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/sensor"
	"github.com/labctl/labctl/internal/telemetry"
	"github.com/labctl/labctl/internal/wiredatum"
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
	Use:           "sensor",
	Short:         "Run a standalone Sensor process",
	Long:          `Run a standalone Sensor process: it listens on a wire port, shares an Id with its partner Actuator, and polls the Environment it discovers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSensor,
}

func init() {
	rootCmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind the wire listener on")
	rootCmd.Flags().IntVar(&port, "port", 6501, "wire port to listen on")
	rootCmd.Flags().StringVar(&name, "name", "sensor", "human-friendly name advertised via mDNS-SD")
	rootCmd.Flags().StringVar(&id, "id", "", "shared Id with the partner Actuator (generated if empty)")
	rootCmd.Flags().StringVar(&model, "model", "thermo5000", "sensor model")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a tunables TOML file")
	rootCmd.Flags().StringVar(&adminAddr, "admin", "127.0.0.1:9091", "address for the /metrics and /healthz admin server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runSensor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("[sensor] %w", err)
	}

	sensorID := ident.Id(id)
	if sensorID == "" {
		sensorID = ident.NewId()
	}

	m := ident.ParseModel(model)
	kind, unit, ok := kindUnitForModel(m)
	if !ok {
		return fmt.Errorf("[sensor] unsupported model %q", model)
	}

	base := device.New(sensorID, ident.Name(name), m)
	s := sensor.New(base, kind, unit)
	s.SetPollInterval(cfg.Sensor.PollInterval())
	s.SetDiscoveryInterval(cfg.Sensor.DiscoveryInterval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := health.New(health.ListenerCheck(base))
	go checker.Run(ctx)

	if cfg.Telemetry.Enabled {
		go func() {
			if err := telemetry.Serve(ctx, adminAddr, checker); err != nil {
				log.Printf("[sensor] admin server: %v", err)
			}
		}()
	}

	if err := s.Start(ctx, host, port); err != nil {
		return fmt.Errorf("[sensor] start: %w", err)
	}

	fmt.Printf("sensor %s (%s) listening on %s:%d\n", sensorID, model, host, port)
	waitForShutdown(cancel)
	return nil
}

// kindUnitForModel maps a sensor model to the value Kind and Unit it
// reports to the Environment on first contact. Thermo5000 is the only
// model this system knows about today.
func kindUnitForModel(m ident.Model) (wiredatum.Kind, wiredatum.Unit, bool) {
	switch m {
	case ident.ModelThermo5000:
		return wiredatum.KindFloat32, wiredatum.UnitDegreesC, true
	default:
		return 0, 0, false
	}
}

func waitForShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	cancel()
}
