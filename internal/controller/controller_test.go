package controller

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"

	"github.com/labctl/labctl/internal/device"
	"github.com/labctl/labctl/internal/discovery"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/wire"
	"github.com/labctl/labctl/internal/wiredatum"
)

func newTestController(t *testing.T, containerMode bool) *Controller {
	t.Helper()
	base := device.New(ident.NewId(), ident.Name("controller-1"), ident.ModelController)
	return New(base, containerMode)
}

func roundTrip(t *testing.T, c *Controller, req *wire.Message) *wire.Message {
	t.Helper()
	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		c.Handle(server)
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

// fakeSensor serves a single GET /datum request with the given temperature
// and returns its listen address.
func fakeSensor(t *testing.T, tempC float32) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		defer ln.Close()
		if _, err := wire.ReadFrom(conn); err != nil {
			return
		}
		d := wiredatum.New(wiredatum.FloatValue(tempC), wiredatum.UnitDegreesC)
		body, _ := json.Marshal([]wiredatum.Datum{d})
		wire.NewResponse(200).WithBody(body).WriteTo(conn)
	}()
	return ln.Addr().String()
}

// fakeActuator accepts a single POST /command and reports its body on the
// returned channel.
func fakeActuator(t *testing.T) (addr string, received chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	received = make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		defer ln.Close()
		msg, err := wire.ReadFrom(conn)
		if err != nil {
			return
		}
		received <- string(msg.Body)
		wire.NewResponse(200).WriteTo(conn)
	}()
	return ln.Addr().String(), received
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	a, err := ident.ParseAddress(addr)
	if err != nil {
		t.Fatalf("parse address %q: %v", addr, err)
	}
	return a.Host, int(a.Port)
}

func TestPollOnceStoresDatumAndForwardsCommand(t *testing.T) {
	c := newTestController(t, false)
	id := ident.NewId()

	sensorAddr := fakeSensor(t, 30)
	sHost, sPort := splitHostPort(t, sensorAddr)
	c.sensors.Save(discovery.ServiceRecord{Id: id, Model: ident.ModelThermo5000, Host: sHost, Port: sPort})

	actuatorAddr, received := fakeActuator(t)
	aHost, aPort := splitHostPort(t, actuatorAddr)
	c.actuators.Save(discovery.ServiceRecord{Id: id, Model: ident.ModelThermo5000, Host: aHost, Port: aPort})

	c.pollOnce(context.Background())

	if c.deque(id).Len() != 1 {
		t.Fatalf("deque len = %d, want 1", c.deque(id).Len())
	}

	select {
	case body := <-received:
		if !strings.Contains(body, "CoolBy") {
			t.Errorf("forwarded command body = %q, want CoolBy", body)
		}
	default:
		t.Error("expected the actuator to have received a forwarded command")
	}
}

func TestDataAndDatumEndpoints(t *testing.T) {
	c := newTestController(t, false)
	id := ident.NewId()
	c.sensors.Save(discovery.ServiceRecord{Id: id, Model: ident.ModelThermo5000})
	c.deque(id).PushFront(wiredatum.New(wiredatum.FloatValue(1), wiredatum.UnitDegreesC))
	c.deque(id).PushFront(wiredatum.New(wiredatum.FloatValue(2), wiredatum.UnitDegreesC))

	dataResp := roundTrip(t, c, wire.GetRequest("/data"))
	var data []sensorData
	if err := json.Unmarshal(dataResp.Body, &data); err != nil {
		t.Fatalf("parse /data: %v", err)
	}
	if len(data) != 1 || len(data[0].Data) != 2 {
		t.Fatalf("data = %+v, want one sensor with 2 readings", data)
	}

	datumResp := roundTrip(t, c, wire.GetRequest("/datum"))
	var datum []sensorDatum
	if err := json.Unmarshal(datumResp.Body, &datum); err != nil {
		t.Fatalf("parse /datum: %v", err)
	}
	if len(datum) != 1 || len(datum[0].Datum) != 1 || datum[0].Datum[0].Value.Float != 2 {
		t.Fatalf("datum = %+v, want one sensor with the newest reading", datum)
	}
}

func TestStatusEndpoint(t *testing.T) {
	c := newTestController(t, false)
	c.sensors.Save(discovery.ServiceRecord{Id: ident.NewId()})
	c.sensors.Save(discovery.ServiceRecord{Id: ident.NewId()})
	c.actuators.Save(discovery.ServiceRecord{Id: ident.NewId()})

	resp := roundTrip(t, c, wire.GetRequest("/status"))
	var status statusResponse
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		t.Fatalf("parse /status: %v", err)
	}
	if status.Sensors != 2 || status.Actuators != 1 {
		t.Errorf("status = %+v, want 2 sensors, 1 actuator", status)
	}
}

func TestUISubstitutesContainerModeAddress(t *testing.T) {
	c := newTestController(t, true)
	c.selfAddr = "192.168.2.16:6565"

	resp := roundTrip(t, c, wire.GetRequest("/ui"))
	if ct, _ := resp.Header("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := string(resp.Body)
	if !strings.Contains(body, "localhost:6565") {
		t.Error("expected container-mode body to contain localhost:6565")
	}
	if strings.Contains(body, "192.168.2.16:6565") {
		t.Error("container-mode body must not leak the real address")
	}
}

func TestUISubstitutesNormalModeAddress(t *testing.T) {
	c := newTestController(t, false)
	c.selfAddr = "192.168.2.16:6565"

	resp := roundTrip(t, c, wire.GetRequest("/ui"))
	body := string(resp.Body)
	if !strings.Contains(body, "192.168.2.16:6565") {
		t.Error("expected normal-mode body to contain the controller's own address")
	}
}

func TestUnsupportedRequestIs400(t *testing.T) {
	c := newTestController(t, false)
	resp := roundTrip(t, c, wire.NewRequest("POST", "/data"))
	if resp.StartLine != "HTTP/1.1 400 Bad Request" {
		t.Errorf("StartLine = %q, want 400", resp.StartLine)
	}
}
