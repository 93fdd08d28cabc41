// Package discovery implements service advertisement and peer discovery
// for all four roles, backed by mDNS-SD (github.com/joshuafuller/beacon).
package discovery

import (
	"fmt"

	"github.com/labctl/labctl/internal/ident"
)

// ServiceRecord is the service registration record advertised by a device
// and recovered by a peer that resolves it: identity, model, and the
// reachable host/port.
type ServiceRecord struct {
	Id    ident.Id
	Name  ident.Name
	Model ident.Model
	Host  string
	Port  int
}

// InstanceName is the mDNS instance name advertised for rec: "<id>.<model>".
func (rec ServiceRecord) InstanceName() string {
	return fmt.Sprintf("%s.%s", rec.Id, rec.Model)
}

// Address renders the record's reachable "host:port" for dialling.
func (rec ServiceRecord) Address() string {
	return fmt.Sprintf("%s:%d", rec.Host, rec.Port)
}

// ServiceType builds the RFC 6763 service-type string for a service
// group, e.g. ServiceType("sensor") -> "_sensor._tcp.local".
func ServiceType(group string) string {
	return "_" + group + "._tcp.local"
}
