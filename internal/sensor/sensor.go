// Package sensor implements the Sensor role: polls the Environment on a
// fixed cadence, keeps a bounded ring buffer, and serves data/datum
// requests.
package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/discovery"
	"github.com/labctl/labctl/internal/ringbuf"
	"github.com/labctl/labctl/internal/telemetry"
	"github.com/labctl/labctl/internal/wire"
	"github.com/labctl/labctl/internal/wiredatum"
)

// BufferSize is the Sensor's ring-buffer bound (spec §4.5).
const BufferSize = 10

// DefaultPollInterval is the Sensor poller's cadence.
const DefaultPollInterval = 50 * time.Millisecond

// DefaultDiscoveryInterval is the cadence of the once-discovery workers.
const DefaultDiscoveryInterval = 200 * time.Millisecond

// Sensor polls a discovered Environment and serves its own bounded
// history of readings.
type Sensor struct {
	*device.Base

	kind wiredatum.Kind
	unit wiredatum.Unit

	environment *discovery.Slot
	controller  *discovery.Slot
	data        *ringbuf.Deque

	pollInterval      time.Duration
	discoveryInterval time.Duration

	dialTimeout time.Duration
}

// New builds a Sensor that declares the given Kind/Unit to the
// Environment on first contact.
func New(base *device.Base, kind wiredatum.Kind, unit wiredatum.Unit) *Sensor {
	return &Sensor{
		Base:              base,
		kind:              kind,
		unit:              unit,
		environment:       discovery.NewSlot(),
		controller:        discovery.NewSlot(),
		data:              ringbuf.New(BufferSize),
		pollInterval:      DefaultPollInterval,
		discoveryInterval: DefaultDiscoveryInterval,
		dialTimeout:       2 * time.Second,
	}
}

// SetPollInterval overrides the poll cadence (used by tunables wiring).
func (s *Sensor) SetPollInterval(d time.Duration) { s.pollInterval = d }

// SetDiscoveryInterval overrides the discovery poll cadence.
func (s *Sensor) SetDiscoveryInterval(d time.Duration) { s.discoveryInterval = d }

// Start registers self, launches once-discovery for the Environment and
// Controller, launches the poller, and enters the accept loop.
func (s *Sensor) Start(ctx context.Context, host string, port int) error {
	go discovery.Once(ctx, string(s.Name), "environment", s.discoveryInterval, s.saveEnvironment)
	go discovery.Once(ctx, string(s.Name), "controller", s.discoveryInterval, s.saveController)
	go s.poll(ctx)
	return s.Respond(ctx, "sensor", host, port, s.Handle)
}

func (s *Sensor) saveEnvironment(rec discovery.ServiceRecord) {
	telemetry.DiscoveryResolved.WithLabelValues("environment").Inc()
	s.environment.Set(rec)
}

func (s *Sensor) saveController(rec discovery.ServiceRecord) {
	telemetry.DiscoveryResolved.WithLabelValues("controller").Inc()
	s.controller.Set(rec)
}

func (s *Sensor) poll(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		env, ok := s.environment.Get()
		if !ok {
			log.Printf("[%s] poll: environment not yet discovered", s.Name)
			continue
		}

		datum, err := s.queryEnvironment(env)
		if err != nil {
			telemetry.PollsTotal.WithLabelValues("sensor", "error").Inc()
			log.Printf("[%s] poll: %v", s.Name, err)
			continue
		}
		telemetry.PollsTotal.WithLabelValues("sensor", "ok").Inc()
		s.data.PushFront(datum)
		telemetry.BufferDepth.WithLabelValues("sensor").Set(float64(s.data.Len()))
	}
}

func (s *Sensor) queryEnvironment(env discovery.ServiceRecord) (wiredatum.Datum, error) {
	conn, err := net.DialTimeout("tcp", env.Address(), s.dialTimeout)
	if err != nil {
		return wiredatum.Datum{}, fmt.Errorf("dial environment: %w", err)
	}
	defer conn.Close()

	req := wire.GetRequest(fmt.Sprintf("/datum/%s", s.Id)).WithHeaders(map[string]string{
		"kind": s.kind.String(),
		"unit": s.unit.String(),
	})
	if _, err := req.WriteTo(conn); err != nil {
		return wiredatum.Datum{}, fmt.Errorf("send request: %w", err)
	}

	resp, err := wire.ReadFrom(conn)
	if err != nil {
		return wiredatum.Datum{}, fmt.Errorf("read response: %w", err)
	}

	var d wiredatum.Datum
	if err := json.Unmarshal(resp.Body, &d); err != nil {
		return wiredatum.Datum{}, fmt.Errorf("parse datum: %w", err)
	}
	return d, nil
}

// Handle dispatches an accepted connection by its request start line.
func (s *Sensor) Handle(conn net.Conn) {
	defer conn.Close()

	msg, err := wire.ReadFrom(conn)
	if err != nil {
		s.HandlerFailure(conn, "bad request")
		return
	}

	parts := strings.Fields(msg.StartLine)
	if len(parts) < 2 {
		s.HandlerFailure(conn, fmt.Sprintf("malformed start line: %q", msg.StartLine))
		return
	}

	switch {
	case parts[0] == "GET" && parts[1] == "/data":
		s.writeData(conn, s.data.All())
	case parts[0] == "GET" && parts[1] == "/datum":
		var newest []wiredatum.Datum
		if d, ok := s.data.Newest(); ok {
			newest = []wiredatum.Datum{d}
		}
		s.writeData(conn, newest)
	default:
		s.HandlerFailure(conn, fmt.Sprintf("unsupported request: %s", msg.StartLine))
	}
}

func (s *Sensor) writeData(conn net.Conn, data []wiredatum.Datum) {
	body, err := json.Marshal(wiredatum.NonNil(data))
	if err != nil {
		s.HandlerFailure(conn, "internal encode error")
		return
	}
	wire.NewResponse(200).WithBody(body).WriteTo(conn)
}
