package nbody

import (
	"math"
	"testing"
)

// Sol/Terra fixture mirrors spec.md's end-to-end orbit-stability scenario:
// Sol(mass=1000) at origin, Terra(mass=50) at (600,0) on a circular orbit.
func solTerra() ([]State, []Mass) {
	r := 600.0
	vy := OrbitalSpeed(1000, r)
	states := []State{
		{Pos: Vec2{0, 0}, Vel: Vec2{0, 0}},
		{Pos: Vec2{r, 0}, Vel: Vec2{0, vy}},
	}
	masses := []Mass{1000, 50}
	return states, masses
}

func TestOrbitStability(t *testing.T) {
	states, masses := solTerra()
	period := 2 * math.Pi * 600 / states[1].Vel.Y

	steps := int(period / DtFixed)
	for i := 0; i < steps; i++ {
		states = Step(states, masses, DtFixed)
	}

	dx := states[1].Pos.X - 600
	dy := states[1].Pos.Y - 0
	dist := math.Hypot(dx, dy)
	if dist > 5 {
		t.Errorf("after one period, Terra drifted %.3f world units from (600,0): got %+v", dist, states[1].Pos)
	}
}

func TestEnergyConservation(t *testing.T) {
	states, masses := solTerra()

	energy := func(s []State, m []Mass) float64 {
		var ke, pe float64
		for i := range s {
			v2 := s[i].Vel.X*s[i].Vel.X + s[i].Vel.Y*s[i].Vel.Y
			ke += 0.5 * m[i] * v2
		}
		for i := range s {
			for j := i + 1; j < len(s); j++ {
				r := s[i].Pos.Sub(s[j].Pos).Len()
				if r < MinDist {
					r = MinDist
				}
				pe -= G * m[i] * m[j] / r
			}
		}
		return ke + pe
	}

	e0 := energy(states, masses)
	durationSeconds := 100.0
	steps := int(durationSeconds / DtFixed)
	for i := 0; i < steps; i++ {
		states = Step(states, masses, DtFixed)
	}
	e1 := energy(states, masses)

	drift := math.Abs((e1 - e0) / e0)
	if drift > 0.02 {
		t.Errorf("energy drifted %.4f%% over 100s, want <2%%", drift*100)
	}
}

func TestStepDeterministic(t *testing.T) {
	states, masses := solTerra()
	a := Step(states, masses, DtFixed)
	b := Step(states, masses, DtFixed)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Step is not deterministic for body %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestMinDistClamp(t *testing.T) {
	states := []State{
		{Pos: Vec2{0, 0}, Vel: Vec2{0, 0}},
		{Pos: Vec2{0.0001, 0}, Vel: Vec2{0, 0}},
	}
	masses := []Mass{1000, 1000}

	next := Step(states, masses, DtFixed)
	for i, s := range next {
		if !s.IsFinite() {
			t.Fatalf("body %d produced non-finite state near singularity: %+v", i, s)
		}
	}
}

func TestEscapeAndOrbitalSpeed(t *testing.T) {
	esc := EscapeVelocity(1000, 600)
	orb := OrbitalSpeed(1000, 600)
	if math.Abs(esc-orb*math.Sqrt2) > 1e-9 {
		t.Errorf("escape velocity should be sqrt(2)*orbital speed: esc=%.6f orb*sqrt2=%.6f", esc, orb*math.Sqrt2)
	}
}
