// Package device implements the per-process skeleton shared by every
// role: advertise self, bind a listener, dispatch incoming connections to
// a role-specific handler, and own background discovery workers.
package device

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/joshuafuller/beacon/responder"

	"github.com/labctl/labctl/internal/discovery"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/wire"
)

// Handler processes exactly one accepted connection and is responsible
// for closing it.
type Handler func(net.Conn)

// Base is the identity, transport, and discovery skeleton every role
// embeds. It owns nothing about a role's domain state.
type Base struct {
	Id    ident.Id
	Name  ident.Name
	Model ident.Model

	listener  net.Listener
	responder *responder.Responder
}

// New builds a Base with the given identity. Name may be mutated by the
// embedding role; Id and Model are fixed for the process lifetime.
func New(id ident.Id, name ident.Name, model ident.Model) *Base {
	return &Base{Id: id, Name: name, Model: model}
}

// GetServiceInfo is a pure constructor for the ServiceRecord this device
// will advertise, given the host/port it will listen on.
func (b *Base) GetServiceInfo(host string, port int) discovery.ServiceRecord {
	return discovery.ServiceRecord{
		Id:    b.Id,
		Name:  b.Name,
		Model: b.Model,
		Host:  host,
		Port:  port,
	}
}

// Register advertises the device under group via mDNS-SD.
func (b *Base) Register(ctx context.Context, group string, host string, port int) error {
	rec := b.GetServiceInfo(host, port)
	resp, err := discovery.Advertise(ctx, rec, group)
	if err != nil {
		return err
	}
	b.responder = resp
	return nil
}

// Bind opens a TCP listener on addr. Failure is fatal: a device that
// cannot bind its wire port cannot do anything else useful.
func (b *Base) Bind(addr string) net.Listener {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("[%s] bind %s: %v", b.Name, addr, err)
	}
	b.listener = l
	return l
}

// Respond composes Register, Bind, and an accept loop that invokes
// handler exactly once per accepted connection.
func (b *Base) Respond(ctx context.Context, group string, host string, port int, handler Handler) error {
	if err := b.Register(ctx, group, host, port); err != nil {
		return err
	}
	l := b.Bind(fmt.Sprintf("%s:%d", host, port))
	go b.acceptLoop(ctx, l, handler)
	return nil
}

func (b *Base) acceptLoop(ctx context.Context, l net.Listener, handler Handler) {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			log.Printf("[%s] accept: %v", b.Name, err)
			return
		}
		handler(conn)
	}
}

// HandlerFailure writes the canonical 400 Bad Request response and closes
// the connection.
func (b *Base) HandlerFailure(conn net.Conn, msg string) {
	resp := wire.NewResponse(400).WithBody([]byte(msg))
	if _, err := resp.WriteTo(conn); err != nil {
		log.Printf("[%s] write 400: %v", b.Name, err)
	}
	conn.Close()
}

// ListenerAlive reports whether Bind has succeeded. It does not detect a
// listener that has since been closed. It backs the "listener" health
// check every role registers.
func (b *Base) ListenerAlive() error {
	if b.listener == nil {
		return fmt.Errorf("listener not yet bound")
	}
	return nil
}

// Close tears down the responder and listener. It is the synchronous
// counterpart to the background goroutines Respond starts.
func (b *Base) Close() error {
	if b.responder != nil {
		b.responder.Close()
	}
	if b.listener != nil {
		return b.listener.Close()
	}
	return nil
}
