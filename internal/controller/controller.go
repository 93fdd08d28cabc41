// Package controller implements the Controller role: it polls every known
// Sensor on a fixed cadence, keeps a bounded per-sensor history, runs a
// decision rule over the newest reading, and forwards any resulting
// command to the matched Actuator.
package controller

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/labctl/labctl/internal/command"
	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/discovery"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/ringbuf"
	"github.com/labctl/labctl/internal/telemetry"
	"github.com/labctl/labctl/internal/wire"
	"github.com/labctl/labctl/internal/wiredatum"
)

// BufferSize is the Controller's per-sensor ring-buffer bound (spec §4.7).
const BufferSize = 500

// DefaultPollInterval is the poller's steady-state cadence.
const DefaultPollInterval = 50 * time.Millisecond

// FirstPollDelay is the poller's startup grace period, giving Sensors
// time to acquire an initial sample before the first poll.
const FirstPollDelay = 100 * time.Millisecond

// DefaultDiscoveryInterval is the cadence of the continuous-discovery
// workers tracking Sensors and Actuators.
const DefaultDiscoveryInterval = 200 * time.Millisecond

// Controller polls discovered Sensors, assesses their readings, and
// forwards commands to discovered Actuators.
type Controller struct {
	*device.Base

	sensors   *discovery.Registry
	actuators *discovery.Registry

	mu        sync.Mutex
	assessors map[ident.Id]Assessor
	data      map[ident.Id]*ringbuf.Deque

	containerMode bool
	selfAddr      string
	startedAt     time.Time

	pollInterval      time.Duration
	discoveryInterval time.Duration
	dialTimeout       time.Duration
}

// New builds a Controller. containerMode controls the backend URL the
// /ui page substitutes.
func New(base *device.Base, containerMode bool) *Controller {
	return &Controller{
		Base:              base,
		sensors:           discovery.NewRegistry(),
		actuators:         discovery.NewRegistry(),
		assessors:         map[ident.Id]Assessor{},
		data:              map[ident.Id]*ringbuf.Deque{},
		containerMode:     containerMode,
		pollInterval:      DefaultPollInterval,
		discoveryInterval: DefaultDiscoveryInterval,
		dialTimeout:       2 * time.Second,
	}
}

// SetAssessor installs a per-device override of the default assessor for
// sensor id.
func (c *Controller) SetAssessor(id ident.Id, a Assessor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assessors[id] = a
}

// SetPollInterval overrides the poll cadence (used by tunables wiring).
func (c *Controller) SetPollInterval(d time.Duration) { c.pollInterval = d }

// SetDiscoveryInterval overrides the discovery poll cadence.
func (c *Controller) SetDiscoveryInterval(d time.Duration) { c.discoveryInterval = d }

// Start registers self, launches continuous-discovery for Sensors and
// Actuators, launches the poller, and enters the accept loop.
func (c *Controller) Start(ctx context.Context, host string, port int) error {
	c.selfAddr = fmt.Sprintf("%s:%d", host, port)
	c.startedAt = time.Now()

	go discovery.Continuous(ctx, string(c.Name), "sensor", c.discoveryInterval, c.saveSensor)
	go discovery.Continuous(ctx, string(c.Name), "actuator", c.discoveryInterval, c.saveActuator)
	go c.poll(ctx)

	return c.Respond(ctx, "controller", host, port, c.Handle)
}

func (c *Controller) saveSensor(rec discovery.ServiceRecord) {
	telemetry.DiscoveryResolved.WithLabelValues("sensor").Inc()
	c.sensors.Save(rec)
}

func (c *Controller) saveActuator(rec discovery.ServiceRecord) {
	telemetry.DiscoveryResolved.WithLabelValues("actuator").Inc()
	c.actuators.Save(rec)
}

func (c *Controller) poll(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(FirstPollDelay):
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		c.pollOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) pollOnce(ctx context.Context) {
	for _, sensor := range c.sensors.List() {
		datum, err := c.queryDatum(sensor)
		if err != nil {
			telemetry.PollsTotal.WithLabelValues("controller", "error").Inc()
			log.Printf("[%s] poll %s: %v", c.Name, sensor.Id, err)
			continue
		}
		telemetry.PollsTotal.WithLabelValues("controller", "ok").Inc()

		deque := c.deque(sensor.Id)
		deque.PushFront(datum)
		telemetry.BufferDepth.WithLabelValues("controller").Set(float64(deque.Len()))

		assessor, ok := c.resolveAssessor(sensor.Id, sensor.Model)
		if !ok {
			log.Printf("[%s] poll %s: no assessor for model %s", c.Name, sensor.Id, sensor.Model)
			continue
		}

		cmd, ok := assessor(datum)
		if !ok {
			continue
		}
		telemetry.CommandsAssessed.WithLabelValues(string(cmd.Name)).Inc()

		actuator, ok := c.actuators.Get(sensor.Id)
		if !ok {
			log.Printf("[%s] poll %s: no actuator known", c.Name, sensor.Id)
			continue
		}
		c.sendCommand(actuator, cmd)
	}
}

func (c *Controller) deque(id ident.Id) *ringbuf.Deque {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.data[id]
	if !ok {
		q = ringbuf.New(BufferSize)
		c.data[id] = q
	}
	return q
}

func (c *Controller) resolveAssessor(id ident.Id, model ident.Model) (Assessor, bool) {
	c.mu.Lock()
	a, ok := c.assessors[id]
	c.mu.Unlock()
	if ok {
		return a, true
	}
	return DefaultAssessorFor(model)
}

func (c *Controller) queryDatum(sensor discovery.ServiceRecord) (wiredatum.Datum, error) {
	conn, err := net.DialTimeout("tcp", sensor.Address(), c.dialTimeout)
	if err != nil {
		return wiredatum.Datum{}, fmt.Errorf("dial sensor: %w", err)
	}
	defer conn.Close()

	if _, err := wire.GetRequest("/datum").WriteTo(conn); err != nil {
		return wiredatum.Datum{}, fmt.Errorf("send request: %w", err)
	}

	resp, err := wire.ReadFrom(conn)
	if err != nil {
		return wiredatum.Datum{}, fmt.Errorf("read response: %w", err)
	}

	datums, err := wiredatum.UnmarshalArray(resp.Body)
	if err != nil {
		return wiredatum.Datum{}, fmt.Errorf("parse datum: %w", err)
	}
	if len(datums) == 0 {
		return wiredatum.Datum{}, fmt.Errorf("sensor returned no datum yet")
	}
	return datums[0], nil
}

func (c *Controller) sendCommand(actuator discovery.ServiceRecord, cmd command.Command) {
	conn, err := net.DialTimeout("tcp", actuator.Address(), c.dialTimeout)
	if err != nil {
		log.Printf("[%s] sendCommand: dial actuator: %v", c.Name, err)
		return
	}
	defer conn.Close()

	req := wire.PostRequest("/command").WithBody([]byte(cmd.JSON()))
	if _, err := req.WriteTo(conn); err != nil {
		log.Printf("[%s] sendCommand: write: %v", c.Name, err)
		return
	}
	if _, err := wire.ReadFrom(conn); err != nil {
		log.Printf("[%s] sendCommand: read response: %v", c.Name, err)
	}
}

type sensorData struct {
	Id   ident.Id          `json:"id"`
	Data []wiredatum.Datum `json:"data"`
}

type sensorDatum struct {
	Id    ident.Id          `json:"id"`
	Datum []wiredatum.Datum `json:"datum"`
}

type statusResponse struct {
	Sensors       int     `json:"sensors"`
	Actuators     int     `json:"actuators"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
