package controller

import (
	"github.com/labctl/labctl/internal/command"
	"github.com/labctl/labctl/internal/ident"
	"github.com/labctl/labctl/internal/wiredatum"
)

// Assessor is a pure decision rule over a single Datum: it returns a
// Command and true if the poller should act, or false to do nothing.
type Assessor func(wiredatum.Datum) (command.Command, bool)

// DefaultAssessorFor looks up the built-in decision rule for a sensor
// Model. Only Thermo5000 has one; other models have no default and must
// be given a per-id override via Controller.SetAssessor.
func DefaultAssessorFor(model ident.Model) (Assessor, bool) {
	switch model {
	case ident.ModelThermo5000:
		return thermo5000Assessor, true
	default:
		return nil, false
	}
}

// thermo5000Assessor implements the dead-band rule: cool if hot, heat if
// cold, otherwise do nothing. Temperatures outside °C are not understood
// by this rule and never produce a command.
func thermo5000Assessor(d wiredatum.Datum) (command.Command, bool) {
	if d.Unit != wiredatum.UnitDegreesC {
		return command.Command{}, false
	}

	t := d.Value.Float64()
	switch {
	case t > 28:
		return command.Command{Name: command.CoolBy, Value: t - 25}, true
	case t < 22:
		return command.Command{Name: command.HeatBy, Value: 25 - t}, true
	default:
		return command.Command{}, false
	}
}
