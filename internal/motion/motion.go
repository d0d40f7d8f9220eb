// Package motion evaluates closed-form kinematics for the four supported
// motion modules. All evaluation is pure: the same parameters and time
// always produce the same result, and no function here validates ranges
// or returns an error. Degenerate inputs (zero mass, length, wavelength)
// propagate as NaN or Inf.
package motion

// Kind identifies a motion module.
type Kind string

const (
	KindProjectile Kind = "ProjectileMotion"
	KindSpring     Kind = "SpringOscillation"
	KindPendulum   Kind = "PendulumMotion"
	KindWave       Kind = "WaveVibration"
)

// Kinds lists every supported module in classification priority order.
var Kinds = []Kind{KindProjectile, KindSpring, KindPendulum, KindWave}

// Known reports whether name is a supported module kind.
func Known(name string) bool {
	for _, k := range Kinds {
		if string(k) == name {
			return true
		}
	}
	return false
}

// WaveKind selects the rendering interpretation of a wave; the
// displacement formula is shared.
type WaveKind string

const (
	WaveTransverse   WaveKind = "transverse"
	WaveLongitudinal WaveKind = "longitudinal"
)

// Regime classifies oscillatory decay behavior from the damping ratio.
type Regime string

const (
	RegimeUnderdamped Regime = "underdamped"
	RegimeCritical    Regime = "criticallyDamped"
	RegimeOverdamped  Regime = "overdamped"
)

// Params is one variant of the motion parameter union.
type Params interface {
	Kind() Kind
	// Step returns the simulation time step in seconds.
	Step() float64
}

// Evaluation is the instantaneous kinematic state at a given time.
// Displacement is meters for springs and waves and degrees for
// pendulums; X/Y and Grounded apply to projectiles only.
type Evaluation struct {
	Time             float64
	Displacement     float64
	Velocity         float64
	X                float64
	Y                float64
	Grounded         bool
	NaturalFrequency float64
	Period           float64
	DampingRatio     float64
	Regime           Regime
}

// Evaluate computes the kinematic state for any parameter variant at
// elapsed time t.
func Evaluate(p Params, t float64) Evaluation {
	switch v := p.(type) {
	case Projectile:
		return v.Evaluate(t)
	case Spring:
		return v.Evaluate(t)
	case Pendulum:
		return v.Evaluate(t)
	case Wave:
		return v.Evaluate(t)
	default:
		return Evaluation{Time: t}
	}
}

// Input keys shared with the classification layer and the HTTP API.
const (
	keyVelocity       = "velocity"
	keyAngle          = "angle"
	keyGravity        = "gravity"
	keyTimeStep       = "timeStep"
	keyMass           = "mass"
	keySpringConstant = "springConstant"
	keyAmplitude      = "amplitude"
	keyDamping        = "damping"
	keyLength         = "length"
	keyInitialAngle   = "initialAngle"
	keyFrequency      = "frequency"
	keyWavelength     = "wavelength"
	keyWaveType       = "waveType"
)

// DefaultInputs returns the documented default input set for a module,
// as sent over the wire when the classifier omits a field.
func DefaultInputs(k Kind) map[string]any {
	switch k {
	case KindProjectile:
		return map[string]any{
			keyVelocity: 50.0, keyAngle: 45.0, keyGravity: 9.8, keyTimeStep: 0.1,
		}
	case KindSpring:
		return map[string]any{
			keyMass: 1.0, keySpringConstant: 10.0, keyAmplitude: 1.0,
			keyDamping: 0.0, keyTimeStep: 0.05,
		}
	case KindPendulum:
		return map[string]any{
			keyLength: 1.0, keyMass: 1.0, keyInitialAngle: 30.0,
			keyGravity: 9.8, keyDamping: 0.0, keyTimeStep: 0.05,
		}
	case KindWave:
		return map[string]any{
			keyFrequency: 1.0, keyAmplitude: 1.0, keyWavelength: 2.0,
			keyDamping: 0.0, keyTimeStep: 0.05, keyWaveType: string(WaveTransverse),
		}
	default:
		return map[string]any{}
	}
}

// FromInputs builds a typed parameter variant from a wire input map,
// falling back to the module defaults for absent or non-numeric fields.
func FromInputs(k Kind, inputs map[string]any) Params {
	switch k {
	case KindProjectile:
		p := NewProjectile()
		p.Velocity = num(inputs, keyVelocity, p.Velocity)
		p.AngleDeg = num(inputs, keyAngle, p.AngleDeg)
		p.Gravity = num(inputs, keyGravity, p.Gravity)
		p.TimeStep = num(inputs, keyTimeStep, p.TimeStep)
		return p
	case KindSpring:
		p := NewSpring()
		p.Mass = num(inputs, keyMass, p.Mass)
		p.SpringConstant = num(inputs, keySpringConstant, p.SpringConstant)
		p.Amplitude = num(inputs, keyAmplitude, p.Amplitude)
		p.Damping = num(inputs, keyDamping, p.Damping)
		p.TimeStep = num(inputs, keyTimeStep, p.TimeStep)
		return p
	case KindPendulum:
		p := NewPendulum()
		p.Length = num(inputs, keyLength, p.Length)
		p.Mass = num(inputs, keyMass, p.Mass)
		p.InitialAngleDeg = num(inputs, keyInitialAngle, p.InitialAngleDeg)
		p.Gravity = num(inputs, keyGravity, p.Gravity)
		p.Damping = num(inputs, keyDamping, p.Damping)
		p.TimeStep = num(inputs, keyTimeStep, p.TimeStep)
		return p
	case KindWave:
		p := NewWave()
		p.Frequency = num(inputs, keyFrequency, p.Frequency)
		p.Amplitude = num(inputs, keyAmplitude, p.Amplitude)
		p.Wavelength = num(inputs, keyWavelength, p.Wavelength)
		p.Damping = num(inputs, keyDamping, p.Damping)
		p.TimeStep = num(inputs, keyTimeStep, p.TimeStep)
		if s, ok := inputs[keyWaveType].(string); ok && WaveKind(s) == WaveLongitudinal {
			p.WaveType = WaveLongitudinal
		}
		return p
	default:
		return nil
	}
}

// Inputs converts a typed parameter variant back to its wire input map.
func Inputs(p Params) map[string]any {
	switch v := p.(type) {
	case Projectile:
		return map[string]any{
			keyVelocity: v.Velocity, keyAngle: v.AngleDeg,
			keyGravity: v.Gravity, keyTimeStep: v.TimeStep,
		}
	case Spring:
		return map[string]any{
			keyMass: v.Mass, keySpringConstant: v.SpringConstant,
			keyAmplitude: v.Amplitude, keyDamping: v.Damping, keyTimeStep: v.TimeStep,
		}
	case Pendulum:
		return map[string]any{
			keyLength: v.Length, keyMass: v.Mass, keyInitialAngle: v.InitialAngleDeg,
			keyGravity: v.Gravity, keyDamping: v.Damping, keyTimeStep: v.TimeStep,
		}
	case Wave:
		return map[string]any{
			keyFrequency: v.Frequency, keyAmplitude: v.Amplitude,
			keyWavelength: v.Wavelength, keyDamping: v.Damping,
			keyTimeStep: v.TimeStep, keyWaveType: string(v.WaveType),
		}
	default:
		return map[string]any{}
	}
}

// SetInput applies a single named input to a parameter variant,
// returning the updated variant. Unknown names leave it unchanged.
func SetInput(p Params, name string, value float64) Params {
	inputs := Inputs(p)
	if _, ok := inputs[name]; !ok {
		return p
	}
	inputs[name] = value
	return FromInputs(p.Kind(), inputs)
}

func num(inputs map[string]any, key string, fallback float64) float64 {
	switch v := inputs[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	default:
		return fallback
	}
}
