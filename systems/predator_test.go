package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
)

var testPredatorParams = PredatorParams{
	RadSq:       50 * 50,
	VisualRadSq: 150 * 150,
	Cells:       3,
	AvoidFactor: 50,
	MinSpeed:    1,
	MaxSpeed:    4.5,
}

func TestPredatorAvoidance(t *testing.T) {
	torus := NewTorus(400, 400)
	pred := r2.Vec{X: 200, Y: 200}

	tests := []struct {
		name       string
		pos        r2.Vec
		wantStruck bool
		wantPush   r2.Vec
	}{
		{"out of range", r2.Vec{X: 300, Y: 200}, false, r2.Vec{}},
		{"to the right", r2.Vec{X: 225, Y: 200}, true, r2.Vec{X: 2}}, // 50/25 along +X
		{"above", r2.Vec{X: 200, Y: 190}, true, r2.Vec{Y: -5}},
		{"on top", pred, true, r2.Vec{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			push, struck := PredatorAvoidance(torus, tt.pos, pred, testPredatorParams.RadSq, testPredatorParams.AvoidFactor)
			if struck != tt.wantStruck {
				t.Errorf("struck = %v, want %v", struck, tt.wantStruck)
			}
			checkVec(t, "push", push, tt.wantPush)
		})
	}
}

func TestPredatorAvoidanceAcrossSeam(t *testing.T) {
	torus := NewTorus(400, 400)
	push, struck := PredatorAvoidance(torus, r2.Vec{X: 5, Y: 100}, r2.Vec{X: 395, Y: 100}, 50*50, 50)
	if !struck {
		t.Fatal("agent 10 units across the seam not struck")
	}
	checkVec(t, "push", push, r2.Vec{X: 5})
}

func TestPredatorAdjustment(t *testing.T) {
	agents := []components.Agent{
		{Position: r2.Vec{X: 220, Y: 200}, Velocity: r2.Vec{X: 1}}, // ahead, struck
		{Position: r2.Vec{X: 100, Y: 200}, Velocity: r2.Vec{X: 1}}, // behind, seen
		{Position: r2.Vec{X: 200, Y: 390}, Velocity: r2.Vec{X: 1}}, // out of sight
		{Position: r2.Vec{X: 200, Y: 200}, Velocity: r2.Vec{X: 7}, IsPredator: true},
	}
	grid, torus := forceWorld(agents)

	res := PredatorAdjustment(3, agents, grid, torus, testPredatorParams, NewScratch(1, 1))

	if res.Seen != 2 || res.Struck != 1 {
		t.Fatalf("Seen/Struck = %d/%d, want 2/1", res.Seen, res.Struck)
	}
	if !agents[0].Predated || agents[1].Predated || agents[2].Predated {
		t.Errorf("Predated = %v %v %v, want true false false",
			agents[0].Predated, agents[1].Predated, agents[2].Predated)
	}

	// Ahead scores 1, behind scores 0: only the struck agent contributes
	checkVec(t, "adjustment", res.Adjustment, r2.Vec{X: 10})

	// Push of 50/20 along +X
	if math.Abs(agents[0].Velocity.X-3.5) > 1e-9 || agents[0].Velocity.Y != 0 {
		t.Errorf("struck velocity = %v, want (3.5, 0)", agents[0].Velocity)
	}
	if agents[1].Velocity != (r2.Vec{X: 1}) {
		t.Errorf("unstruck velocity changed to %v", agents[1].Velocity)
	}
}

func TestPredatorAdjustmentNothingVisible(t *testing.T) {
	agents := []components.Agent{
		{Position: r2.Vec{X: 10, Y: 10}},
		{Position: r2.Vec{X: 200, Y: 200}, Velocity: r2.Vec{X: 7}, IsPredator: true},
	}
	grid, torus := forceWorld(agents)

	res := PredatorAdjustment(1, agents, grid, torus, testPredatorParams, NewScratch(1, 1))
	if res.Seen != 0 || res.Adjustment != (r2.Vec{}) {
		t.Errorf("result = %+v, want zero", res)
	}
}
