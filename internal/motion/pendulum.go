package motion

import "math"

// Pendulum models a damped pendulum in the small-angle regime.
// Angles are degrees throughout; the linearized solution scales
// with any amplitude unit.
type Pendulum struct {
	Length          float64
	Mass            float64
	InitialAngleDeg float64
	Gravity         float64
	Damping         float64
	TimeStep        float64
}

// NewPendulum returns a pendulum with the documented defaults.
func NewPendulum() Pendulum {
	return Pendulum{Length: 1, Mass: 1, InitialAngleDeg: 30, Gravity: 9.8, Damping: 0, TimeStep: 0.05}
}

func (p Pendulum) Kind() Kind    { return KindPendulum }
func (p Pendulum) Step() float64 { return p.TimeStep }

// NaturalFrequency returns omega0 = sqrt(g/L) in rad/s.
func (p Pendulum) NaturalFrequency() float64 {
	return math.Sqrt(p.Gravity / p.Length)
}

// DampingRatio returns zeta = damping / (2*sqrt(g*L)).
func (p Pendulum) DampingRatio() float64 {
	return p.Damping / (2 * math.Sqrt(p.Gravity*p.Length))
}

// Evaluate returns the angle in degrees at time t.
func (p Pendulum) Evaluate(t float64) Evaluation {
	omega0 := p.NaturalFrequency()
	zeta := p.DampingRatio()
	theta, thetaDot := oscillator(p.InitialAngleDeg, omega0, zeta, t)
	return Evaluation{
		Time:             t,
		Displacement:     theta,
		Velocity:         thetaDot,
		NaturalFrequency: omega0,
		Period:           2 * math.Pi / omega0,
		DampingRatio:     zeta,
		Regime:           regimeOf(zeta),
	}
}

// Energy returns the mechanical energy at time t using the small-angle
// potential m*g*L*(1-cos(theta)), with theta converted to radians.
func (p Pendulum) Energy(t float64) float64 {
	e := p.Evaluate(t)
	theta := e.Displacement * math.Pi / 180
	thetaDot := e.Velocity * math.Pi / 180
	ke := 0.5 * p.Mass * p.Length * p.Length * thetaDot * thetaDot
	pe := p.Mass * p.Gravity * p.Length * (1 - math.Cos(theta))
	return ke + pe
}
