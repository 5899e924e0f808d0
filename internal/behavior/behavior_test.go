package behavior

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"highwayplanner/internal/vehicle"
)

func TestFindLeadPicksNearestNotFirst(t *testing.T) {
	// The farther vehicle appears first in the slice; the nearer one, also
	// a qualifying lead, appears second. findLead must not stop at the
	// first match.
	others := []vehicle.OtherVehicle{
		{ID: 1, S: 25, D: vehicle.LaneCenterD(vehicle.LaneCenter), Vx: 5},
		{ID: 2, S: 15, D: vehicle.LaneCenterD(vehicle.LaneCenter), Vx: 5},
	}

	lead, found := findLead(others, vehicle.LaneCenter, 0, vehicle.DefaultParams())
	if !found {
		t.Fatal("expected a lead to be found")
	}
	if lead.ID != 2 {
		t.Errorf("lead.ID = %d, want 2 (the nearer vehicle)", lead.ID)
	}
}

func TestSurveyLanesUsesMinimumSpeedNotFirst(t *testing.T) {
	// Lane 2 has two vehicles ahead within the lookahead window: a fast
	// one listed first, a slow one listed second. The binding speed for
	// that lane is the slower of the two, regardless of slice order.
	others := []vehicle.OtherVehicle{
		{ID: 3, S: 20, D: vehicle.LaneCenterD(vehicle.LaneRight), Vx: 10},
		{ID: 4, S: 10, D: vehicle.LaneCenterD(vehicle.LaneRight), Vx: 3},
	}

	_, laneSpeed := surveyLanes(others, 0, vehicle.DefaultParams())
	if laneSpeed[vehicle.LaneRight] != 3 {
		t.Errorf("laneSpeed[right] = %v, want 3 (the slower occupant)", laneSpeed[vehicle.LaneRight])
	}
}

func TestSlewIsMonotonicOneWay(t *testing.T) {
	cases := []struct {
		refVel, target, want float64
	}{
		{0, 10, vehicle.AccelStepMPS},
		{10, 0, 10 - vehicle.AccelStepMPS},
		{5, 5, 5},
	}
	for _, c := range cases {
		if got := slew(c.refVel, c.target, vehicle.DefaultParams()); got != c.want {
			t.Errorf("slew(%v, %v) = %v, want %v", c.refVel, c.target, got, c.want)
		}
	}
}

func TestSlewNeverOvershootsTarget(t *testing.T) {
	got := slew(vehicle.AccelStepMPS/2, 0, vehicle.DefaultParams())
	if got != 0 {
		t.Errorf("slew should clamp to target, got %v", got)
	}
}

func TestPlanHonorsOverriddenSpeedLimit(t *testing.T) {
	params := vehicle.DefaultParams()
	params.SpeedLimitMPS = 20
	params.CruiseTargetMPS = 19.5

	state := vehicle.NewState()
	target := Plan(state, Input{
		Ego:    vehicle.EgoState{S: 0, D: vehicle.LaneCenterD(vehicle.LaneCenter)},
		Params: &params,
	})

	if target != 19.5 {
		t.Errorf("target = %v, want overridden cruise target 19.5", target)
	}
}

func TestPlanScenarios(t *testing.T) {
	Convey("Given an ego vehicle with a clear road ahead", t, func() {
		state := vehicle.NewState()

		Convey("Plan accelerates toward cruise speed", func() {
			target := Plan(state, Input{
				Ego: vehicle.EgoState{S: 0, D: vehicle.LaneCenterD(vehicle.LaneCenter)},
			})
			So(target, ShouldEqual, vehicle.CruiseTargetMPS)
			So(state.RefVel, ShouldEqual, vehicle.AccelStepMPS)
			So(state.LeadVehicleID, ShouldEqual, vehicle.NoLead)
		})
	})

	Convey("Given a slow lead directly ahead with a faster clear lane beside it", t, func() {
		state := vehicle.NewState()
		state.RefVel = vehicle.CruiseTargetMPS

		in := Input{
			Ego: vehicle.EgoState{S: 100, D: vehicle.LaneCenterD(vehicle.LaneCenter)},
			OtherVehicles: []vehicle.OtherVehicle{
				// Slow lead directly ahead in the center lane.
				{ID: 1, S: 110, D: vehicle.LaneCenterD(vehicle.LaneCenter), Vx: 5},
				// Right lane is empty and faster.
			},
		}

		Convey("Plan tracks the lead and queues a lane change", func() {
			target := Plan(state, in)
			So(target, ShouldEqual, float64(5))
			So(state.LeadVehicleID, ShouldEqual, 1)
			So(state.Lane, ShouldBeIn, []vehicle.Lane{vehicle.LaneLeft, vehicle.LaneRight})
		})
	})

	Convey("Given a vehicle beyond the lead qualification window", t, func() {
		state := vehicle.NewState()

		in := Input{
			Ego: vehicle.EgoState{S: 0, D: vehicle.LaneCenterD(vehicle.LaneCenter)},
			OtherVehicles: []vehicle.OtherVehicle{
				{ID: 9, S: 40, D: vehicle.LaneCenterD(vehicle.LaneCenter), Vx: 1},
			},
		}

		Convey("Plan never tracks it as a lead and cruises at the cruise target", func() {
			target := Plan(state, in)
			So(target, ShouldEqual, vehicle.CruiseTargetMPS)
			So(state.LeadVehicleID, ShouldEqual, vehicle.NoLead)
		})
	})
}
