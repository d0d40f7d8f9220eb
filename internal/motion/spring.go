package motion

import "math"

// Spring models a mass on a spring with viscous damping.
type Spring struct {
	Mass           float64
	SpringConstant float64
	Amplitude      float64
	Damping        float64
	TimeStep       float64
}

// NewSpring returns a spring with the documented defaults.
func NewSpring() Spring {
	return Spring{Mass: 1, SpringConstant: 10, Amplitude: 1, Damping: 0, TimeStep: 0.05}
}

func (s Spring) Kind() Kind    { return KindSpring }
func (s Spring) Step() float64 { return s.TimeStep }

// NaturalFrequency returns omega0 = sqrt(k/m) in rad/s.
func (s Spring) NaturalFrequency() float64 {
	return math.Sqrt(s.SpringConstant / s.Mass)
}

// DampingRatio returns zeta = c / (2*sqrt(k*m)).
func (s Spring) DampingRatio() float64 {
	return s.Damping / (2 * math.Sqrt(s.SpringConstant*s.Mass))
}

// Evaluate returns displacement in meters at time t. The reported
// period is the undamped 2*pi/omega0 even when damping is present.
func (s Spring) Evaluate(t float64) Evaluation {
	omega0 := s.NaturalFrequency()
	zeta := s.DampingRatio()
	x, v := oscillator(s.Amplitude, omega0, zeta, t)
	return Evaluation{
		Time:             t,
		Displacement:     x,
		Velocity:         v,
		NaturalFrequency: omega0,
		Period:           2 * math.Pi / omega0,
		DampingRatio:     zeta,
		Regime:           regimeOf(zeta),
	}
}

// Energy returns the mechanical energy 0.5*k*x^2 + 0.5*m*v^2 at time t.
func (s Spring) Energy(t float64) float64 {
	e := s.Evaluate(t)
	return 0.5*s.SpringConstant*e.Displacement*e.Displacement + 0.5*s.Mass*e.Velocity*e.Velocity
}
