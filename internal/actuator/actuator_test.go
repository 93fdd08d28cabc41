package actuator

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/discovery"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/wire"
)

func newTestActuator(t *testing.T) *Actuator {
	t.Helper()
	base := device.New(ident.NewId(), ident.Name("actuator-1"), ident.ModelThermo5000)
	return New(base)
}

func roundTrip(t *testing.T, a *Actuator, req *wire.Message) *wire.Message {
	t.Helper()
	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		a.Handle(server)
		close(done)
	}()
	if _, err := req.WriteTo(client); err != nil {
		t.Fatalf("write request: %v", err)
	}
	resp, err := wire.ReadFrom(client)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	client.Close()
	<-done
	return resp
}

func TestCommandWithoutEnvironmentIs400(t *testing.T) {
	a := newTestActuator(t)
	resp := roundTrip(t, a, wire.PostRequest("/command").WithBody([]byte(`{"name":"HeatBy","value":"5"}`)))
	if resp.StartLine != "HTTP/1.1 400 Bad Request" {
		t.Errorf("StartLine = %q, want 400", resp.StartLine)
	}
}

func TestCommandWithEnvironmentAcksImmediately(t *testing.T) {
	a := newTestActuator(t)

	// Environment server that accepts the forwarded connection without
	// responding, to prove the Actuator's ACK does not wait on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	accepted := make(chan struct{})
	go func() {
		_, err := ln.Accept()
		if err == nil {
			close(accepted)
			// Deliberately never respond.
			<-make(chan struct{})
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	a.environment.Set(discovery.ServiceRecord{Host: host, Port: port})

	resp := roundTrip(t, a, wire.PostRequest("/command").WithBody([]byte(`{"name":"HeatBy","value":"5"}`)))
	if resp.StartLine != "HTTP/1.1 200 OK" {
		t.Errorf("StartLine = %q, want 200", resp.StartLine)
	}

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Error("expected the forwarded connection to be accepted")
	}
}

func TestUnsupportedRequestIs400(t *testing.T) {
	a := newTestActuator(t)
	resp := roundTrip(t, a, wire.NewRequest("GET", "/command"))
	if resp.StartLine != "HTTP/1.1 400 Bad Request" {
		t.Errorf("StartLine = %q, want 400", resp.StartLine)
	}
}
