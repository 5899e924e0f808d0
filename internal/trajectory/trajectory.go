// Package trajectory builds the 50-point, 20ms-spaced path the simulator
// drives through: it preserves the unconsumed residual of the previous path
// verbatim, then extends it with a natural-cubic-spline fit through anchors
// chosen to keep the splice C1-continuous and the new path centered on the
// target lane.
package trajectory

import (
	"math"

	"github.com/cnkei/gospline"

	"highwayplanner/internal/geometry"
	"highwayplanner/internal/mapdata"
	"highwayplanner/internal/vehicle"
)

// minRefVel guards the point-extension loop against division by zero: below
// this speed no new points are emitted, only the previous path is returned.
const minRefVel = 1e-3

// forwardOffsets are the three forward anchor distances (meters) ahead of
// car_s used to seed the spline, per SPEC_FULL.md §4.3.
var forwardOffsets = [3]float64{40, 80, 120}

// Path is the emitted trajectory as parallel coordinate lists.
type Path struct {
	X, Y []float64
}

// Input bundles what the trajectory generator needs for one tick. Params is
// optional; a nil Params uses the compiled-in constants (see
// vehicle.ResolveParams).
type Input struct {
	Lane     vehicle.Lane
	RefVel   float64
	Ego      vehicle.EgoState
	Previous vehicle.PreviousPath
	Map      *mapdata.Map
	Params   *vehicle.Params
}

// Generate returns the new path: the unconsumed previous path followed by
// fresh spline-interpolated points, padded out to the configured path
// length.
func Generate(in Input) Path {
	params := vehicle.ResolveParams(in.Params)
	prevLen := in.Previous.Len()

	path := Path{
		X: make([]float64, 0, params.PathLength),
		Y: make([]float64, 0, params.PathLength),
	}
	path.X = append(path.X, in.Previous.X...)
	path.Y = append(path.Y, in.Previous.Y...)

	if in.RefVel < minRefVel || prevLen >= params.PathLength {
		return path
	}

	anchors := buildAnchors(in, params)
	refX, refY, refYaw := anchors.refX, anchors.refY, anchors.refYaw

	localX, localY := toLocalFrame(anchors.x, anchors.y, refX, refY, refYaw)
	spline := gospline.NewCubicSpline(localX, localY)

	targetX := 30.0
	targetY := spline.At(targetX)
	targetDist := math.Hypot(targetX, targetY)

	n := targetDist / (vehicle.TickPeriodSeconds * in.RefVel)

	xAddOn := 0.0
	remaining := params.PathLength - prevLen
	for i := 1; i <= remaining; i++ {
		x := xAddOn + targetX/n
		y := spline.At(x)
		xAddOn = x

		gx, gy := fromLocalFrame(x, y, refX, refY, refYaw)
		path.X = append(path.X, gx)
		path.Y = append(path.Y, gy)
	}

	return path
}

type anchorSet struct {
	x, y               []float64
	refX, refY, refYaw float64
}

// buildAnchors selects the two rearward anchors (from the previous path's
// tail, or synthesized from the current pose) and the three forward anchors
// (sampled from the map at the target lane centerline), per SPEC_FULL.md
// §4.3.
func buildAnchors(in Input, params vehicle.Params) anchorSet {
	prevLen := in.Previous.Len()

	var xs, ys []float64
	var refX, refY, refYaw float64
	var carS float64

	if prevLen < 2 {
		refX, refY, refYaw = in.Ego.X, in.Ego.Y, in.Ego.Yaw
		prevCarX := in.Ego.X - math.Cos(in.Ego.Yaw)
		prevCarY := in.Ego.Y - math.Sin(in.Ego.Yaw)
		xs = append(xs, prevCarX, in.Ego.X)
		ys = append(ys, prevCarY, in.Ego.Y)
		carS = in.Ego.S
		if prevLen > 0 {
			carS = in.Previous.EndS
		}
	} else {
		refX = in.Previous.X[prevLen-1]
		refY = in.Previous.Y[prevLen-1]
		refXPrev := in.Previous.X[prevLen-2]
		refYPrev := in.Previous.Y[prevLen-2]
		refYaw = math.Atan2(refY-refYPrev, refX-refXPrev)
		xs = append(xs, refXPrev, refX)
		ys = append(ys, refYPrev, refY)
		carS = in.Previous.EndS
	}

	laneD := params.LaneCenterDFor(in.Lane)
	for _, delta := range forwardOffsets {
		x, y := geometry.ToCartesian(carS+delta, laneD, in.Map.Waypoints)
		xs = append(xs, x)
		ys = append(ys, y)
	}

	return anchorSet{x: xs, y: ys, refX: refX, refY: refY, refYaw: refYaw}
}

// toLocalFrame translates and rotates points into the reference pose's local
// frame, where the rearward anchors fall on the negative/origin x-axis.
func toLocalFrame(xs, ys []float64, refX, refY, refYaw float64) (localX, localY []float64) {
	localX = make([]float64, len(xs))
	localY = make([]float64, len(xs))
	cosYaw := math.Cos(-refYaw)
	sinYaw := math.Sin(-refYaw)
	for i := range xs {
		shiftX := xs[i] - refX
		shiftY := ys[i] - refY
		localX[i] = shiftX*cosYaw - shiftY*sinYaw
		localY[i] = shiftX*sinYaw + shiftY*cosYaw
	}
	return localX, localY
}

// fromLocalFrame is the inverse of toLocalFrame for a single point.
func fromLocalFrame(x, y, refX, refY, refYaw float64) (gx, gy float64) {
	cosYaw := math.Cos(refYaw)
	sinYaw := math.Sin(refYaw)
	gx = x*cosYaw - y*sinYaw + refX
	gy = x*sinYaw + y*cosYaw + refY
	return gx, gy
}
