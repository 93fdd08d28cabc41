// Package ident defines the identity and addressing primitives shared by
// every role: Id, Name, Model, and Address.
package ident

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Id is an opaque, immutable, globally unique string naming a logical
// device. A Sensor and its partner Actuator intentionally share one Id.
type Id string

// NewId mints a fresh, process-lifetime Id. Nothing about an Id is
// persisted across restarts.
func NewId() Id {
	return Id(uuid.NewString())
}

// Name is a human-friendly, mutable label for a device.
type Name string

// Model is a closed enumeration tag identifying a device's kind.
type Model int

const (
	ModelUnsupported Model = iota
	ModelController
	ModelEnvironment
	ModelThermo5000
)

// String renders the stable lowercase token used on the wire and in mDNS
// TXT records.
func (m Model) String() string {
	switch m {
	case ModelController:
		return "controller"
	case ModelEnvironment:
		return "environment"
	case ModelThermo5000:
		return "thermo5000"
	default:
		return "unsupported"
	}
}

// ParseModel maps a wire token back to a Model. An unrecognised token
// parses to ModelUnsupported rather than failing, so callers that only
// need to reject bad models (e.g. the Environment's command handler) can
// do so uniformly without a separate error path.
func ParseModel(s string) Model {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "controller":
		return ModelController
	case "environment":
		return ModelEnvironment
	case "thermo5000":
		return ModelThermo5000
	default:
		return ModelUnsupported
	}
}

// Address is an <ip>:<port> pair, IPv4 or IPv6.
type Address struct {
	Host string
	Port uint16
}

func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// ParseAddress splits a "host:port" string into its parts.
func ParseAddress(s string) (Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("ident: parse address %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("ident: parse address %q: bad port: %w", s, err)
	}
	return Address{Host: host, Port: uint16(port)}, nil
}
