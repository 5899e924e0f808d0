// Package behavior decides the target lane and longitudinal target speed
// from sensor-fusion data, and slews the planner's reference speed toward
// that target. It never touches the trajectory geometry; its only output is
// an updated vehicle.State.
package behavior

import (
	"math"

	"highwayplanner/internal/vehicle"
)

// Input bundles everything the behavior layer needs for one tick. Params is
// optional; a nil Params uses the compiled-in constants (see
// vehicle.ResolveParams).
type Input struct {
	Ego           vehicle.EgoState
	PreviousLen   int
	EndPathS      float64
	OtherVehicles []vehicle.OtherVehicle
	Params        *vehicle.Params
}

// Plan updates state in place: it may change state.Lane, state.RefVel, and
// state.LeadVehicleID, and returns the target speed it decided on (useful to
// callers and tests that want to inspect the lane-change gate without
// re-deriving it).
func Plan(state *vehicle.State, in Input) (targetVel float64) {
	params := vehicle.ResolveParams(in.Params)

	instantCarS := in.Ego.S
	carS := in.Ego.S
	if in.PreviousLen > 0 {
		carS = in.EndPathS
	}

	projected := projectVehicles(in.OtherVehicles, in.PreviousLen)

	lead, leadFound := findLead(projected, state.Lane, carS, params)
	if leadFound {
		state.LeadVehicleID = lead.ID
	} else {
		state.LeadVehicleID = vehicle.NoLead
	}

	targetVel = params.CruiseTargetMPS
	if leadFound {
		targetVel = lead.Speed()
		distToLead := lead.S - carS
		if distToLead > vehicle.LaneClearDistanceMeters {
			state.LeadVehicleID = vehicle.NoLead
			targetVel = params.SpeedLimitMPS
		} else if distToLead < params.SafetyDistanceMeters {
			targetVel = lead.Speed() - vehicle.CatchDownOffsetMPS
		}
	}

	state.RefVel = slew(state.RefVel, targetVel, params)

	// The lane survey looks at raw, unprojected vehicle positions: it
	// answers "is this lane clear and fast right now", not "will it be
	// clear by the time I get there" (that's what the lead projection is
	// for). See SPEC_FULL.md §4.2.
	available, laneSpeed := surveyLanes(in.OtherVehicles, instantCarS, params)

	if targetVel < params.CruiseTargetMPS {
		for l := vehicle.Lane(0); l < vehicle.NumLanes; l++ {
			if available[l] && absLane(state.Lane-l) == 1 && laneSpeed[l] > laneSpeed[state.Lane] {
				state.Lane = l
				break
			}
		}
	}

	return targetVel
}

// slew moves ref_vel toward target by at most one acceleration step,
// strictly one-way per tick, and never past [0, speed limit].
func slew(refVel, target float64, params vehicle.Params) float64 {
	if refVel > target {
		refVel -= params.AccelStepMPS
		if refVel < target {
			refVel = target
		}
	} else if refVel < target {
		refVel += params.AccelStepMPS
		if refVel > target {
			refVel = target
		}
	}
	if refVel > params.SpeedLimitMPS {
		refVel = params.SpeedLimitMPS
	}
	if refVel < 0 {
		refVel = 0
	}
	return refVel
}

func absLane(l vehicle.Lane) int {
	if l < 0 {
		return int(-l)
	}
	return int(l)
}

// projectVehicles advances each vehicle's Frenet s by its speed over the
// residual-path horizon, so sensor fusion aligns with the planner's frame.
func projectVehicles(others []vehicle.OtherVehicle, prevSize int) []vehicle.OtherVehicle {
	projected := make([]vehicle.OtherVehicle, len(others))
	horizon := float64(prevSize) * vehicle.TickPeriodSeconds
	for i, v := range others {
		projected[i] = v
		projected[i].S = v.S + horizon*v.Speed()
	}
	return projected
}

func inLane(d float64, lane vehicle.Lane, laneWidth float64) bool {
	return math.Abs(d-(2+laneWidth*float64(lane))) < 2
}

// findLead returns the nearest same-lane vehicle ahead within the lead
// window, scanning the full list rather than stopping at the first match
// (the corrected behavior; see SPEC_FULL.md §9).
func findLead(projected []vehicle.OtherVehicle, lane vehicle.Lane, carS float64, params vehicle.Params) (lead vehicle.OtherVehicle, found bool) {
	bestGap := math.Inf(1)
	for _, v := range projected {
		if !inLane(v.D, lane, params.LaneWidthMeters) {
			continue
		}
		gap := v.S - carS
		if gap > 0 && gap < params.LeadDistanceThresholdMeters && gap < bestGap {
			bestGap = gap
			lead = v
			found = true
		}
	}
	return lead, found
}

// surveyLanes computes, for each lane, whether it's free of near-proximity
// traffic and the speed of its binding (slowest qualifying) occupant ahead.
func surveyLanes(projected []vehicle.OtherVehicle, instantCarS float64, params vehicle.Params) (available [vehicle.NumLanes]bool, laneSpeed [vehicle.NumLanes]float64) {
	for l := range available {
		available[l] = true
		laneSpeed[l] = params.SpeedLimitMPS
	}

	for l := vehicle.Lane(0); l < vehicle.NumLanes; l++ {
		for _, v := range projected {
			if !inLane(v.D, l, params.LaneWidthMeters) {
				continue
			}
			gap := v.S - instantCarS
			if math.Abs(gap) < params.MinimumGapMeters {
				available[l] = false
			}
			if gap > 0 && gap < vehicle.LaneLookAheadMeters {
				if speed := v.Speed(); speed < laneSpeed[l] {
					laneSpeed[l] = speed
				}
			}
		}
	}
	return available, laneSpeed
}
