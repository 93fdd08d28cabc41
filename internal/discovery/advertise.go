package discovery

import (
	"context"
	"fmt"

	"github.com/joshuafuller/beacon/responder"
)

// Advertise registers rec under the given service group via mDNS-SD,
// returning the live responder so the caller can Close it on shutdown.
// The group is explicit rather than derived from rec.Model because a
// Sensor and its partner Actuator share a Model but advertise into
// different groups.
func Advertise(ctx context.Context, rec ServiceRecord, group string) (*responder.Responder, error) {
	resp, err := responder.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery: start responder: %w", err)
	}

	svc := &responder.Service{
		InstanceName: rec.InstanceName(),
		ServiceType:  ServiceType(group),
		Port:         rec.Port,
		TXTRecords: map[string]string{
			"id":    string(rec.Id),
			"name":  string(rec.Name),
			"model": rec.Model.String(),
		},
	}

	if err := resp.Register(svc); err != nil {
		resp.Close()
		return nil, fmt.Errorf("discovery: register %s: %w", svc.InstanceName, err)
	}
	return resp, nil
}
