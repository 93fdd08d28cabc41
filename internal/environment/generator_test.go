package environment

import (
	"testing"
	"time"

	"github.com/labctl/labctl/internal/wiredatum"
)

func TestFloatGeneratorSlopeIsMonotonic(t *testing.T) {
	g := NewFloatGeneratorWithCoefficients(wiredatum.UnitDegreesC, Coefficients{Constant: 0, Slope: 1, Period: 1}, 0)

	d1 := g.Generate()
	time.Sleep(5 * time.Millisecond)
	d2 := g.Generate()

	if !(d1.Value.Float < d2.Value.Float) {
		t.Errorf("expected value to increase: %v then %v", d1.Value.Float, d2.Value.Float)
	}
}

func TestZeroPeriodIsNormalized(t *testing.T) {
	g := NewFloatGeneratorWithCoefficients(wiredatum.UnitDegreesC, Coefficients{Constant: 10, Amplitude: 5, Period: 0}, 0)
	if g.coeffs.Period != 1 || g.coeffs.Amplitude != 0 {
		t.Errorf("zero period not normalized: %+v", g.coeffs)
	}
}

func TestBoolGeneratorAlternates(t *testing.T) {
	g := NewBoolGenerator(wiredatum.UnitPoweredOn, false)
	d1 := g.Generate()
	d2 := g.Generate()
	d3 := g.Generate()

	if d1.Value.Bool == d2.Value.Bool || d2.Value.Bool == d3.Value.Bool {
		t.Errorf("expected alternation: %v %v %v", d1.Value.Bool, d2.Value.Bool, d3.Value.Bool)
	}
}

func TestMutateAdjustsConstant(t *testing.T) {
	g := NewFloatGeneratorWithCoefficients(wiredatum.UnitDegreesC, Coefficients{Constant: 20, Period: 1}, 0)
	g.Mutate(0.05)
	if g.coeffs.Constant != 20.05 {
		t.Errorf("Constant = %v, want 20.05", g.coeffs.Constant)
	}
	g.Mutate(-0.05)
	if g.coeffs.Constant != 20.0 {
		t.Errorf("Constant = %v, want 20.0", g.coeffs.Constant)
	}
}

func TestNewForKindDispatches(t *testing.T) {
	if k := NewForKind(wiredatum.KindBool, wiredatum.UnitPoweredOn).Kind(); k != wiredatum.KindBool {
		t.Errorf("Kind() = %v, want KindBool", k)
	}
	if k := NewForKind(wiredatum.KindInt32, wiredatum.UnitUnitless).Kind(); k != wiredatum.KindInt32 {
		t.Errorf("Kind() = %v, want KindInt32", k)
	}
	if k := NewForKind(wiredatum.KindFloat32, wiredatum.UnitDegreesC).Kind(); k != wiredatum.KindFloat32 {
		t.Errorf("Kind() = %v, want KindFloat32", k)
	}
}
