package planner

import (
	"testing"

	"highwayplanner/internal/geometry"
	"highwayplanner/internal/mapdata"
	"highwayplanner/internal/obs"
	"highwayplanner/internal/vehicle"
)

func straightMap() *mapdata.Map {
	var wps []geometry.Waypoint
	for i := 0; i <= 30; i++ {
		x := float64(i) * 10
		wps = append(wps, geometry.Waypoint{X: x, Y: 0, S: x, Dx: 0, Dy: -1})
	}
	return &mapdata.Map{Waypoints: wps}
}

func TestPlanReturnsFullLengthPath(t *testing.T) {
	p := New(straightMap(), obs.Discard(), nil)

	resp := p.Plan(Telemetry{
		Ego: vehicle.EgoState{X: 0, Y: vehicle.LaneCenterD(vehicle.LaneCenter), Yaw: 0, S: 0},
	})

	if len(resp.NextX) != vehicle.PathLength || len(resp.NextY) != vehicle.PathLength {
		t.Fatalf("got %d/%d points, want %d/%d", len(resp.NextX), len(resp.NextY), vehicle.PathLength, vehicle.PathLength)
	}
}

func TestPlanIsStatefulAcrossTicks(t *testing.T) {
	p := New(straightMap(), obs.Discard(), nil)

	first := p.Plan(Telemetry{
		Ego: vehicle.EgoState{X: 0, Y: vehicle.LaneCenterD(vehicle.LaneCenter), Yaw: 0, S: 0},
	})

	// Feed back a residual path so the second tick takes the
	// previous-path branch rather than synthesizing anchors from pose.
	second := p.Plan(Telemetry{
		Ego: vehicle.EgoState{X: first.NextX[2], Y: first.NextY[2], Yaw: 0, S: 2},
		Previous: vehicle.PreviousPath{
			X: first.NextX[3:], Y: first.NextY[3:],
			EndS: 3, EndD: vehicle.LaneCenterD(vehicle.LaneCenter),
		},
		EndPathS: 3,
		EndPathD: vehicle.LaneCenterD(vehicle.LaneCenter),
	})

	if len(second.NextX) != vehicle.PathLength {
		t.Fatalf("got %d points on second tick, want %d", len(second.NextX), vehicle.PathLength)
	}
	if p.state.RefVel <= 0 {
		t.Errorf("expected ref_vel to have accelerated from rest, got %v", p.state.RefVel)
	}
}

func TestPlanHonorsConfiguredSpeedLimit(t *testing.T) {
	params := vehicle.Params{
		SpeedLimitMPS:               5,
		CruiseTargetMPS:             4.5,
		LaneWidthMeters:             vehicle.LaneWidthMeters,
		AccelStepMPS:                vehicle.AccelStepMPS,
		LeadDistanceThresholdMeters: vehicle.LeadDistanceThresholdMeters,
		SafetyDistanceMeters:        vehicle.SafetyDistanceMeters,
		MinimumGapMeters:            vehicle.MinimumGapMeters,
		PathLength:                  vehicle.PathLength,
	}
	p := New(straightMap(), obs.Discard(), &params)

	// Drive enough ticks that ref_vel has had time to slew all the way up
	// to the overridden cruise target.
	var resp Response
	for i := 0; i < 50; i++ {
		resp = p.Plan(Telemetry{
			Ego: vehicle.EgoState{X: 0, Y: vehicle.LaneCenterD(vehicle.LaneCenter), Yaw: 0, S: 0},
		})
	}
	_ = resp

	if p.state.RefVel > params.SpeedLimitMPS {
		t.Errorf("ref_vel = %v, exceeds overridden speed limit %v", p.state.RefVel, params.SpeedLimitMPS)
	}
	if p.state.RefVel != params.CruiseTargetMPS {
		t.Errorf("ref_vel = %v, want it to have slewed to the overridden cruise target %v", p.state.RefVel, params.CruiseTargetMPS)
	}
}
