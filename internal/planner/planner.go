// Package planner is the per-tick orchestrator: it owns the planner's
// cross-tick state, and on each telemetry message runs the behavior layer
// followed by the trajectory layer, logging the decisions that changed.
package planner

import (
	"highwayplanner/internal/behavior"
	"highwayplanner/internal/mapdata"
	"highwayplanner/internal/obs"
	"highwayplanner/internal/trajectory"
	"highwayplanner/internal/vehicle"
)

// Telemetry is one tick's inbound simulator message, already decoded from
// the wire frame by package transport.
type Telemetry struct {
	Ego           vehicle.EgoState
	Previous      vehicle.PreviousPath
	EndPathS      float64
	EndPathD      float64
	OtherVehicles []vehicle.OtherVehicle
}

// Response is the path the simulator should drive for this tick.
type Response struct {
	NextX, NextY []float64
}

// Planner composes one ego vehicle's worth of cross-tick state with the map
// it plans against. It is not safe for concurrent use: the simulator drives
// one connection at a time, and the transport layer serializes ticks onto
// a single goroutine per connection (see package transport).
type Planner struct {
	state  *vehicle.State
	smap   *mapdata.Map
	log    *obs.Logger
	params *vehicle.Params
	ticks  int
}

// New returns a Planner in its documented initial state: center lane,
// stationary, no lead tracked. params may be nil, in which case the
// compiled-in constants are used (see vehicle.ResolveParams); pass the
// result of config.Planner.ToVehicleParams to honor a YAML override (§8 S8).
func New(m *mapdata.Map, log *obs.Logger, params *vehicle.Params) *Planner {
	if log == nil {
		log = obs.Discard()
	}
	return &Planner{
		state:  vehicle.NewState(),
		smap:   m,
		log:    log,
		params: params,
	}
}

// Plan runs one full tick: behavior decides the lane and reference speed,
// trajectory renders that decision into a point list.
func (p *Planner) Plan(t Telemetry) Response {
	p.ticks++
	entry := p.log.Tick(p.ticks)

	prevLane := p.state.Lane
	prevLead := p.state.LeadVehicleID

	behavior.Plan(p.state, behavior.Input{
		Ego:           t.Ego,
		PreviousLen:   t.Previous.Len(),
		EndPathS:      t.EndPathS,
		OtherVehicles: t.OtherVehicles,
		Params:        p.params,
	})

	if p.state.Lane != prevLane {
		entry.WithFields(map[string]interface{}{
			"from": prevLane,
			"to":   p.state.Lane,
		}).Info("lane change")
	}
	if p.state.LeadVehicleID != prevLead {
		entry.WithFields(map[string]interface{}{
			"prev": prevLead,
			"lead": p.state.LeadVehicleID,
		}).Debug("lead vehicle changed")
	}

	path := trajectory.Generate(trajectory.Input{
		Lane:     p.state.Lane,
		RefVel:   p.state.RefVel,
		Ego:      t.Ego,
		Previous: t.Previous,
		Map:      p.smap,
		Params:   p.params,
	})

	return Response{NextX: path.X, NextY: path.Y}
}
