// Package environment implements the Environment role: a stateful
// simulator holding a per-sensor data-generator registry, serving datum
// requests, and mutating generators on command.
package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/labctl/labctl/internal/command"
	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/telemetry"
	"github.com/labctl/labctl/internal/wire"
	"github.com/labctl/labctl/internal/wiredatum"
)

// Environment holds the per-id generator registry described in spec §4.4.
// All generator access is serialised through mu, matching the single-lock
// discipline every container in this system uses.
type Environment struct {
	*device.Base

	mu         sync.Mutex
	generators map[ident.Id]*Generator
}

// New builds an Environment around the given device identity.
func New(base *device.Base) *Environment {
	return &Environment{Base: base, generators: map[ident.Id]*Generator{}}
}

// Start registers, binds, and serves the Environment's wire port. The
// Environment is purely reactive: it runs no pollers of its own.
func (e *Environment) Start(ctx context.Context, host string, port int) error {
	return e.Respond(ctx, "environment", host, port, e.Handle)
}

// Handle dispatches an accepted connection by its request start line.
func (e *Environment) Handle(conn net.Conn) {
	defer conn.Close()

	msg, err := wire.ReadFrom(conn)
	if err != nil {
		e.HandlerFailure(conn, "bad request")
		return
	}

	parts := strings.Fields(msg.StartLine)
	if len(parts) < 2 {
		e.HandlerFailure(conn, fmt.Sprintf("malformed start line: %q", msg.StartLine))
		return
	}
	method, path := parts[0], parts[1]

	switch {
	case method == "GET" && strings.HasPrefix(path, "/datum/"):
		e.handleDatum(conn, msg, strings.TrimPrefix(path, "/datum/"))
	case method == "POST" && path == "/command":
		e.handleCommand(conn, msg)
	default:
		e.HandlerFailure(conn, fmt.Sprintf("unsupported request: %s", msg.StartLine))
	}
}

func (e *Environment) handleDatum(conn net.Conn, msg *wire.Message, idStr string) {
	id := ident.Id(idStr)

	e.mu.Lock()
	gen, known := e.generators[id]
	if !known {
		kindHeader, hasKind := msg.Header("kind")
		unitHeader, hasUnit := msg.Header("unit")
		if !hasKind || !hasUnit {
			e.mu.Unlock()
			e.HandlerFailure(conn, fmt.Sprintf("unknown Sensor ID %q: kind and unit headers are required on first use", idStr))
			return
		}
		kind, err := wiredatum.ParseKind(kindHeader)
		if err != nil {
			e.mu.Unlock()
			e.HandlerFailure(conn, err.Error())
			return
		}
		gen = NewForKind(kind, wiredatum.ParseUnit(unitHeader))
		e.generators[id] = gen
	}
	datum := gen.Generate()
	e.mu.Unlock()
	telemetry.DatumsGenerated.WithLabelValues(gen.Kind().String()).Inc()

	body, err := json.Marshal(datum)
	if err != nil {
		e.HandlerFailure(conn, "internal encode error")
		return
	}
	wire.NewResponse(200).WithBody(body).WriteTo(conn)
}

func (e *Environment) handleCommand(conn net.Conn, msg *wire.Message) {
	idHeader, hasID := msg.Header("id")
	modelHeader, hasModel := msg.Header("model")
	if !hasID || !hasModel {
		e.HandlerFailure(conn, "command requires id and model headers")
		return
	}

	model := ident.ParseModel(modelHeader)
	switch model {
	case ident.ModelController, ident.ModelEnvironment, ident.ModelUnsupported:
		e.HandlerFailure(conn, fmt.Sprintf("model %q cannot issue commands", modelHeader))
		return
	}

	cmd, err := command.Parse(string(msg.Body))
	if err != nil {
		e.HandlerFailure(conn, err.Error())
		return
	}

	id := ident.Id(idHeader)
	e.mu.Lock()
	gen, known := e.generators[id]
	if !known {
		e.mu.Unlock()
		e.HandlerFailure(conn, fmt.Sprintf("unknown Sensor ID %q", idHeader))
		return
	}

	// The reference scales the command's magnitude by 0.01 per unit
	// before applying it to the generator's constant term.
	delta := cmd.Value * 0.01
	switch cmd.Name {
	case command.HeatBy:
		gen.Mutate(delta)
	case command.CoolBy:
		gen.Mutate(-delta)
	}
	e.mu.Unlock()

	wire.NewResponse(200).WriteTo(conn)
}
