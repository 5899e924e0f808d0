// Package vehicle holds the per-tick data model shared by the behavior and
// trajectory layers: ego state, sensor-fusion rows, the simulator-held
// previous path, and the planner's own small slice of cross-tick state.
package vehicle

import "math"

// Lane is one of the three highway lanes, indexed left (0) to right (2).
type Lane int

const (
	LaneLeft Lane = iota
	LaneCenter
	LaneRight
	NumLanes = 3
)

const (
	// LaneWidthMeters is the width of a single lane.
	LaneWidthMeters = 4.0
	// SpeedLimitMPS is the legal speed limit, 50 mph in meters/second.
	SpeedLimitMPS = 22.352
	// CruiseTargetMPS is the speed the planner targets with a clear lane
	// ahead: a shade under the limit so normal slew never clips it.
	CruiseTargetMPS = SpeedLimitMPS - 0.5
	// AccelStepMPS is the per-tick reference-speed slew step, 0.7 mph.
	AccelStepMPS = 0.3125
	// TickPeriodSeconds is the simulator's fixed message cadence.
	TickPeriodSeconds = 0.02
	// PathLength is the number of (x, y) points emitted per tick.
	PathLength = 50

	// LeadDistanceThresholdMeters is the forward window in which a
	// same-lane vehicle counts as a lead.
	LeadDistanceThresholdMeters = 30.0
	// LaneClearDistanceMeters is the distance beyond which a tracked lead
	// is dropped as no longer relevant.
	LaneClearDistanceMeters = 50.0
	// SafetyDistanceMeters triggers catch-down braking when undershot.
	SafetyDistanceMeters = 2.0
	// CatchDownOffsetMPS is subtracted from a too-close lead's speed.
	CatchDownOffsetMPS = 0.2
	// MinimumGapMeters is the near-proximity gate for lane availability.
	MinimumGapMeters = 10.0
	// LaneLookAheadMeters bounds how far ahead a lane survey looks for a
	// speed-limiting vehicle.
	LaneLookAheadMeters = 50.0
)

// NoLead is the sentinel lead-vehicle id meaning "no lead tracked".
const NoLead = -1

// Params bundles the subset of planner constants a deployment may override
// from the YAML config file (§4.7/§6.5) without a rebuild. A nil *Params
// anywhere one is accepted means "use the compiled-in defaults below".
type Params struct {
	SpeedLimitMPS               float64
	CruiseTargetMPS             float64
	LaneWidthMeters             float64
	AccelStepMPS                float64
	LeadDistanceThresholdMeters float64
	SafetyDistanceMeters        float64
	MinimumGapMeters            float64
	PathLength                  int
}

// DefaultParams returns the compiled-in constants as a Params value.
func DefaultParams() Params {
	return Params{
		SpeedLimitMPS:               SpeedLimitMPS,
		CruiseTargetMPS:             CruiseTargetMPS,
		LaneWidthMeters:             LaneWidthMeters,
		AccelStepMPS:                AccelStepMPS,
		LeadDistanceThresholdMeters: LeadDistanceThresholdMeters,
		SafetyDistanceMeters:        SafetyDistanceMeters,
		MinimumGapMeters:            MinimumGapMeters,
		PathLength:                  PathLength,
	}
}

// ResolveParams returns *p if non-nil, else the compiled-in defaults. Every
// package that accepts an optional Params pointer calls this once at the top
// of its entry point rather than nil-checking field by field.
func ResolveParams(p *Params) Params {
	if p == nil {
		return DefaultParams()
	}
	return *p
}

// LaneCenterDFor returns the Frenet d-coordinate of lane's centerline under
// a possibly-overridden lane width.
func (p Params) LaneCenterDFor(lane Lane) float64 {
	return 2 + p.LaneWidthMeters*float64(lane)
}

// LaneCenterD returns the Frenet d-coordinate of the given lane's centerline.
func LaneCenterD(lane Lane) float64 {
	return 2 + LaneWidthMeters*float64(lane)
}

// EgoState is the ego vehicle's pose and speed as reported for this tick.
type EgoState struct {
	X, Y  float64
	Yaw   float64 // radians
	Speed float64 // m/s
	S, D  float64 // Frenet
}

// OtherVehicle is one sensor-fusion row: another vehicle's pose and velocity
// in both the global and Frenet frames.
type OtherVehicle struct {
	ID     int
	X, Y   float64
	Vx, Vy float64
	S, D   float64
}

// Speed returns the vehicle's scalar speed from its global velocity vector.
func (v OtherVehicle) Speed() float64 {
	return math.Hypot(v.Vx, v.Vy)
}

// PreviousPath is the ordered suffix of the last emitted trajectory the
// simulator has not yet consumed.
type PreviousPath struct {
	X, Y       []float64
	EndS, EndD float64
}

// Len returns the number of unconsumed points.
func (p PreviousPath) Len() int {
	return len(p.X)
}

// State is the planner's small pool of cross-tick state: the committed
// lane, the reference speed currently being realized on the path, and the
// cached id of the current lead vehicle. It is owned by a single
// orchestrator instance and must never be shared across connections without
// a mutex (see package planner).
type State struct {
	Lane          Lane
	RefVel        float64
	LeadVehicleID int
}

// NewState returns the planner's documented initial state: center lane,
// stationary, no lead tracked.
func NewState() *State {
	return &State{
		Lane:          LaneCenter,
		RefVel:        0,
		LeadVehicleID: NoLead,
	}
}
