// Package telemetry exposes Prometheus metrics and a health endpoint on a
// separate admin listener from a role's wire port, so operational surfaces
// never interfere with the closed set of wire request lines the roles
// define between themselves.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PollsTotal counts poll attempts by role ("sensor", "controller") and
// result ("ok", "error").
var PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "labctl",
	Name:      "polls_total",
	Help:      "Total poll attempts by role and result.",
}, []string{"role", "result"})

// DiscoveryResolved counts peers resolved by service group.
var DiscoveryResolved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "labctl",
	Name:      "discovery_resolved_total",
	Help:      "Total peers resolved via mDNS-SD, by service group.",
}, []string{"group"})

// CommandsAssessed counts commands produced by the Controller's
// assessors, by verb.
var CommandsAssessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "labctl",
	Name:      "commands_assessed_total",
	Help:      "Total commands produced by Controller assessors, by verb.",
}, []string{"verb"})

// CommandsForwarded counts commands the Actuator has forwarded to the
// Environment.
var CommandsForwarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "labctl",
	Name:      "commands_forwarded_total",
	Help:      "Total commands forwarded by the Actuator to the Environment.",
})

// DatumsGenerated counts datums generated by the Environment, by kind.
var DatumsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "labctl",
	Name:      "datums_generated_total",
	Help:      "Total datums generated by the Environment, by value kind.",
}, []string{"kind"})

// BufferDepth tracks the current ring-buffer depth, by role.
var BufferDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "labctl",
	Name:      "buffer_depth",
	Help:      "Current ring-buffer depth, by role.",
}, []string{"role"})
