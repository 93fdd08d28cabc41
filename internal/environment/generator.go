package environment

import (
	"math"
	"math/rand"
	"time"

	"github.com/labctl/labctl/internal/wiredatum"
)

// Coefficients parameterise a Generator's deterministic component.
type Coefficients struct {
	Constant  float64
	Slope     float64
	Amplitude float64
	Period    float64 // milliseconds
	Phase     float64
}

// normalize enforces the invariant period != 0 by substituting
// (amplitude=0, period=1) when asked for a zero period.
func (c Coefficients) normalize() Coefficients {
	if c.Period == 0 {
		c.Amplitude = 0
		c.Period = 1
	}
	return c
}

// Generator is a stateful function producing Datums for a declared
// Kind/Unit. All mutation happens through Mutate, under the Environment's
// single generator-map lock — Generator itself holds no lock of its own.
type Generator struct {
	t0     time.Time
	coeffs Coefficients
	noise  float64
	unit   wiredatum.Unit
	kind   wiredatum.Kind

	boolState bool
	rnd       *rand.Rand
}

// NewFloatGenerator returns an offset-slope-sinusoid-plus-noise generator
// with sensible small random defaults, as used for temperature readings.
func NewFloatGenerator(unit wiredatum.Unit) *Generator {
	return NewFloatGeneratorWithCoefficients(unit, Coefficients{Constant: 20, Amplitude: 2, Period: 60_000}, 0.5)
}

// NewFloatGeneratorWithCoefficients builds a Float generator from
// explicit coefficients and noise magnitude, normalising a zero period
// per the Generator invariant.
func NewFloatGeneratorWithCoefficients(unit wiredatum.Unit, coeffs Coefficients, noise float64) *Generator {
	return &Generator{
		t0:     time.Now(),
		coeffs: coeffs.normalize(),
		noise:  noise,
		unit:   unit,
		kind:   wiredatum.KindFloat32,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewIntGenerator returns a time-linear generator with integer-truncated
// output.
func NewIntGenerator(unit wiredatum.Unit) *Generator {
	coeffs := Coefficients{Slope: 1, Period: 60_000}.normalize()
	return &Generator{
		t0:     time.Now(),
		coeffs: coeffs,
		noise:  1,
		unit:   unit,
		kind:   wiredatum.KindInt32,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewBoolGenerator returns an alternating-state generator, initial is the
// value returned by the first call's complement (the first Generate call
// flips it).
func NewBoolGenerator(unit wiredatum.Unit, initial bool) *Generator {
	return &Generator{unit: unit, kind: wiredatum.KindBool, boolState: initial}
}

// NewForKind dispatches to the matching constructor.
func NewForKind(kind wiredatum.Kind, unit wiredatum.Unit) *Generator {
	switch kind {
	case wiredatum.KindBool:
		return NewBoolGenerator(unit, false)
	case wiredatum.KindInt32:
		return NewIntGenerator(unit)
	default:
		return NewFloatGenerator(unit)
	}
}

// Unit reports the generator's declared unit.
func (g *Generator) Unit() wiredatum.Unit { return g.unit }

// Kind reports the generator's declared kind.
func (g *Generator) Kind() wiredatum.Kind { return g.kind }

// Generate produces the next Datum. For Float and Int generators, value
// is evaluated at the elapsed time since t0; for Bool generators, the
// state flips on every call.
func (g *Generator) Generate() wiredatum.Datum {
	now := time.Now()
	switch g.kind {
	case wiredatum.KindFloat32:
		v := g.evaluate(now)
		return wiredatum.Datum{Value: wiredatum.FloatValue(float32(v)), Unit: g.unit, Timestamp: now}
	case wiredatum.KindInt32:
		t := float64(now.Sub(g.t0).Milliseconds())
		v := g.coeffs.Slope*t + (g.rnd.Float64()*2-1)*g.noise
		return wiredatum.Datum{Value: wiredatum.IntValue(int32(v)), Unit: g.unit, Timestamp: now}
	default:
		g.boolState = !g.boolState
		return wiredatum.Datum{Value: wiredatum.BoolValue(g.boolState), Unit: g.unit, Timestamp: now}
	}
}

// evaluate computes the Float generator's value(t) = constant + slope*t +
// amplitude*sin(2*pi*(t+phase)/period) + noise, t in milliseconds since
// t0.
func (g *Generator) evaluate(at time.Time) float64 {
	t := float64(at.Sub(g.t0).Milliseconds())
	c := g.coeffs
	value := c.Constant + c.Slope*t + c.Amplitude*math.Sin(2*math.Pi*(t+c.Phase)/c.Period)
	if g.noise != 0 {
		value += (g.rnd.Float64()*2 - 1) * g.noise
	}
	return value
}

// Mutate adjusts the generator's constant term by delta. HeatBy(Δ) calls
// this with +delta, CoolBy(Δ) with -delta.
func (g *Generator) Mutate(delta float64) {
	g.coeffs.Constant += delta
}
