package viewer

import "math"

// Orbit distance bounds and defaults for the model viewport.
const (
	MinOrbitRadius     = 1.5
	MaxOrbitRadius     = 10.0
	defaultOrbitRadius = 4.0
	defaultFOV         = 50.0 * math.Pi / 180.0

	// maxElevation keeps the camera off the poles so the view never
	// flips.
	maxElevation = math.Pi/2 - 0.01
)

// OrbitCamera is a perspective camera orbiting a target point using
// spherical coordinates. Rotate, zoom and pan are the only interaction
// surface; the radius is clamped to fixed min/max distance bounds.
type OrbitCamera struct {
	azimuth   float64
	elevation float64
	radius    float64

	target [3]float64

	fov    float64
	aspect float64
	near   float64
	far    float64
}

// NewOrbitCamera returns a camera at the default distance looking at
// the origin.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		elevation: 0.4,
		radius:    defaultOrbitRadius,
		fov:       defaultFOV,
		aspect:    16.0 / 9.0,
		near:      0.1,
		far:       100,
	}
}

// Rotate orbits the camera around the target. Elevation is clamped so
// the camera never crosses a pole.
func (c *OrbitCamera) Rotate(dAzimuth, dElevation float64) {
	c.azimuth = math.Mod(c.azimuth+dAzimuth, 2*math.Pi)
	c.elevation += dElevation
	if c.elevation > maxElevation {
		c.elevation = maxElevation
	}
	if c.elevation < -maxElevation {
		c.elevation = -maxElevation
	}
}

// Zoom moves the camera along the view ray. Positive delta zooms in.
// The resulting radius stays within [MinOrbitRadius, MaxOrbitRadius].
func (c *OrbitCamera) Zoom(delta float64) {
	c.radius -= delta
	if c.radius < MinOrbitRadius {
		c.radius = MinOrbitRadius
	}
	if c.radius > MaxOrbitRadius {
		c.radius = MaxOrbitRadius
	}
}

// Pan shifts the target in the camera's local right/up plane.
func (c *OrbitCamera) Pan(dx, dy float64) {
	sinA, cosA := math.Sincos(c.azimuth)

	// Local right axis lies in the horizontal plane.
	c.target[0] += dx * cosA
	c.target[2] += dx * -sinA
	c.target[1] += dy
}

// Radius returns the current orbit distance.
func (c *OrbitCamera) Radius() float64 { return c.radius }

// Target returns the look-at point.
func (c *OrbitCamera) Target() [3]float64 { return c.target }

// Position converts the spherical orbit coordinates to a world-space
// camera position.
func (c *OrbitCamera) Position() [3]float64 {
	cosE := math.Cos(c.elevation)
	return [3]float64{
		c.target[0] + c.radius*cosE*math.Sin(c.azimuth),
		c.target[1] + c.radius*math.Sin(c.elevation),
		c.target[2] + c.radius*cosE*math.Cos(c.azimuth),
	}
}
