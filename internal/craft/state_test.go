package craft

import (
	"math"
	"testing"

	"github.com/star/orbitsim/internal/body"
	"github.com/star/orbitsim/internal/nbody"
)

func terra() body.Body {
	b := body.Body{ID: 1, Name: "Terra", Mass: 50, Radius: 25}
	b.Set(nbody.State{Pos: nbody.Vec2{X: 600, Y: 0}, Vel: nbody.Vec2{X: 0, Y: nbody.OrbitalSpeed(1000, 600)}})
	return b
}

func TestOrbitPositionIsPureFunctionOfParent(t *testing.T) {
	parent := terra()
	o := Orbiting{Parent: 1, Altitude: 5, Angle: 0, OrbitalDir: 1}

	pos := OrbitPosition(o, parent)
	want := nbody.Vec2{X: parent.Current.Pos.X + 30, Y: parent.Current.Pos.Y}
	if math.Abs(pos.X-want.X) > 1e-9 || math.Abs(pos.Y-want.Y) > 1e-9 {
		t.Errorf("OrbitPosition = %+v, want %+v", pos, want)
	}
}

func TestLaunchSetsEscapeVelocityAndAccel(t *testing.T) {
	parent := terra()
	o := Orbiting{Parent: 1, Altitude: 5, Angle: 0, OrbitalDir: 1}

	st := Launch(o, parent, nil, nil)
	if st.Kind != KindFree {
		t.Fatalf("Launch did not transition to Free, got Kind=%d", st.Kind)
	}
	if !st.Free.IsAccel {
		t.Error("Launch should set IsAccel=true")
	}
	wantEsc := nbody.EscapeVelocity(50, 30)
	if math.Abs(st.Free.EscVel-wantEsc) > 1e-9 {
		t.Errorf("EscVel = %.6f, want %.6f", st.Free.EscVel, wantEsc)
	}
}

func TestStepHintsClearsAccelAtCutoff(t *testing.T) {
	parent := terra()
	f := Free{
		Pos:        nbody.Vec2{X: 630, Y: 0},
		Vel:        parent.Current.Vel.Add(nbody.Vec2{X: 0, Y: 100}), // already well past cutoff
		IsAccel:    true,
		EscVel:     nbody.EscapeVelocity(50, 30),
		LaunchBody: 1,
		OrbitalDir: 1,
	}
	StepHints(&f, parent)
	if f.IsAccel {
		t.Error("IsAccel should clear once relative speed reaches 1.1x escape velocity")
	}
}

func TestCaptureIsIdempotent(t *testing.T) {
	dest := terra()
	f := Free{Pos: nbody.Vec2{X: dest.Current.Pos.X + 30, Y: dest.Current.Pos.Y}, OrbitalDir: 1}

	st := Capture(f, dest)
	pos1 := OrbitPosition(st.Orbit, dest)

	st2 := Capture(f, dest)
	pos2 := OrbitPosition(st2.Orbit, dest)

	if pos1 != pos2 {
		t.Errorf("Capture not idempotent: %+v vs %+v", pos1, pos2)
	}
	if math.Abs(pos1.X-f.Pos.X) > 1e-9 || math.Abs(pos1.Y-f.Pos.Y) > 1e-9 {
		t.Errorf("captured position %+v should equal pre-capture free position %+v", pos1, f.Pos)
	}
}

func TestTrajectoryBufferFIFO(t *testing.T) {
	buf := NewTrajectoryBuffer([]Frame{
		{Pos: nbody.Vec2{X: 1}},
		{Pos: nbody.Vec2{X: 2}},
	})
	if buf.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", buf.Len())
	}
	first := buf.PopHead()
	if first.Pos.X != 1 {
		t.Errorf("PopHead order wrong: got X=%v, want 1", first.Pos.X)
	}
	buf.Extend([]Frame{{Pos: nbody.Vec2{X: 3}}})
	if buf.Len() != 2 {
		t.Fatalf("Len() after extend = %d, want 2", buf.Len())
	}
}
