package viewer

// LightKind distinguishes the light types in the rig.
type LightKind int

const (
	LightAmbient LightKind = iota
	LightDirectional
	LightPoint
)

// Light is one light in the viewport rig.
type Light struct {
	Kind      LightKind
	Color     [3]float64
	Intensity float64
	Position  [3]float64
}

// DefaultRig is the fixed three-light setup for the model viewport: a
// soft ambient base, a key directional light from above-right, and a
// warm fill from the opposite side.
func DefaultRig() []Light {
	return []Light{
		{Kind: LightAmbient, Color: [3]float64{1, 1, 1}, Intensity: 0.5},
		{Kind: LightDirectional, Color: [3]float64{1, 1, 1}, Intensity: 1.0, Position: [3]float64{10, 10, 5}},
		{Kind: LightPoint, Color: [3]float64{1, 0.95, 0.85}, Intensity: 0.4, Position: [3]float64{-10, -5, -5}},
	}
}
