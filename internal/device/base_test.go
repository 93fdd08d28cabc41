package device

import (
	"testing"

	"github.com/labctl/labctl/internal/ident"
)

func TestGetServiceInfo(t *testing.T) {
	b := New(ident.Id("s1"), ident.Name("sensor-1"), ident.ModelThermo5000)
	rec := b.GetServiceInfo("192.168.2.16", 7100)

	if rec.Id != "s1" || rec.Name != "sensor-1" || rec.Model != ident.ModelThermo5000 {
		t.Errorf("unexpected identity in record: %+v", rec)
	}
	if rec.Host != "192.168.2.16" || rec.Port != 7100 {
		t.Errorf("unexpected address in record: %+v", rec)
	}
}

func TestListenerAliveBeforeBind(t *testing.T) {
	b := New(ident.Id("s1"), ident.Name("sensor-1"), ident.ModelThermo5000)
	if err := b.ListenerAlive(); err == nil {
		t.Error("expected an error before Bind is called")
	}
}

func TestBindThenListenerAlive(t *testing.T) {
	b := New(ident.Id("s1"), ident.Name("sensor-1"), ident.ModelThermo5000)
	l := b.Bind("127.0.0.1:0")
	defer l.Close()

	if err := b.ListenerAlive(); err != nil {
		t.Errorf("ListenerAlive() = %v, want nil after Bind", err)
	}
}
