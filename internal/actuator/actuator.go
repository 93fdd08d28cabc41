// Package actuator implements the Actuator role: a stateless forwarder
// that converts inbound command requests into outbound requests to the
// Environment, with identity headers attached.
package actuator

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/discovery"
	"github.com/labctl/labctl/internal/telemetry"
	"github.com/labctl/labctl/internal/wire"
)

// DefaultDiscoveryInterval is the cadence of the once-discovery worker.
const DefaultDiscoveryInterval = 200 * time.Millisecond

// Actuator forwards POST /command requests to a discovered Environment.
type Actuator struct {
	*device.Base

	environment       *discovery.Slot
	discoveryInterval time.Duration
	dialTimeout       time.Duration
}

// New builds an Actuator.
func New(base *device.Base) *Actuator {
	return &Actuator{
		Base:              base,
		environment:       discovery.NewSlot(),
		discoveryInterval: DefaultDiscoveryInterval,
		dialTimeout:       2 * time.Second,
	}
}

// SetDiscoveryInterval overrides the discovery poll cadence.
func (a *Actuator) SetDiscoveryInterval(d time.Duration) { a.discoveryInterval = d }

// Start registers self, launches once-discovery for the Environment, and
// enters the accept loop.
func (a *Actuator) Start(ctx context.Context, host string, port int) error {
	go discovery.Once(ctx, string(a.Name), "environment", a.discoveryInterval, a.saveEnvironment)
	return a.Respond(ctx, "actuator", host, port, a.Handle)
}

func (a *Actuator) saveEnvironment(rec discovery.ServiceRecord) {
	telemetry.DiscoveryResolved.WithLabelValues("environment").Inc()
	a.environment.Set(rec)
}

// Handle dispatches an accepted connection. The Controller is the sole
// legitimate caller of POST /command, but the handler does not enforce
// this (per the later-convention Open Question resolved in DESIGN.md).
func (a *Actuator) Handle(conn net.Conn) {
	defer conn.Close()

	msg, err := wire.ReadFrom(conn)
	if err != nil {
		a.HandlerFailure(conn, "bad request")
		return
	}

	parts := strings.Fields(msg.StartLine)
	if len(parts) < 2 || parts[0] != "POST" || parts[1] != "/command" {
		a.HandlerFailure(conn, fmt.Sprintf("unsupported request: %s", msg.StartLine))
		return
	}

	env, ok := a.environment.Get()
	if !ok {
		a.HandlerFailure(conn, "environment not yet discovered")
		return
	}

	// Command delivery is fire-and-forget: the caller is ACKed without
	// waiting for the forwarded command to reach the Environment.
	go a.forward(env, msg.Body)

	wire.NewResponse(200).WriteTo(conn)
}

func (a *Actuator) forward(env discovery.ServiceRecord, body []byte) {
	conn, err := net.DialTimeout("tcp", env.Address(), a.dialTimeout)
	if err != nil {
		log.Printf("[%s] forward: dial environment: %v", a.Name, err)
		return
	}
	defer conn.Close()

	req := wire.PostRequest("/command").WithHeaders(map[string]string{
		"id":    string(a.Id),
		"model": a.Model.String(),
	}).WithBody(body)

	if _, err := req.WriteTo(conn); err != nil {
		log.Printf("[%s] forward: write: %v", a.Name, err)
		return
	}
	if _, err := wire.ReadFrom(conn); err != nil {
		log.Printf("[%s] forward: read response: %v", a.Name, err)
		return
	}
	telemetry.CommandsForwarded.Inc()
}
