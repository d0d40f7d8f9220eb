package motion

import "math"

// oscillator solves the damped harmonic oscillator for amplitude x0,
// natural angular frequency omega0 and damping ratio zeta at time t,
// returning position and velocity.
//
// The critically damped branch requires zeta to equal 1 exactly; with
// floating-point arithmetic that only happens when the damping
// coefficient is chosen to land precisely on the critical value, which
// is the documented behavior rather than an oversight.
func oscillator(x0, omega0, zeta, t float64) (x, v float64) {
	switch {
	case zeta < 1:
		omegaD := omega0 * math.Sqrt(1-zeta*zeta)
		env := math.Exp(-zeta * omega0 * t)
		x = x0 * env * math.Cos(omegaD*t)
		v = x0 * env * (-zeta*omega0*math.Cos(omegaD*t) - omegaD*math.Sin(omegaD*t))
	case zeta == 1:
		env := math.Exp(-omega0 * t)
		x = x0 * (1 + omega0*t) * env
		v = -x0 * omega0 * omega0 * t * env
	default:
		root := math.Sqrt(zeta*zeta - 1)
		alpha1 := -omega0 * (zeta - root)
		alpha2 := -omega0 * (zeta + root)
		c := x0 / 2
		x = c*math.Exp(alpha1*t) + c*math.Exp(alpha2*t)
		v = c*alpha1*math.Exp(alpha1*t) + c*alpha2*math.Exp(alpha2*t)
	}
	return x, v
}

// regimeOf maps a damping ratio to its decay regime.
func regimeOf(zeta float64) Regime {
	switch {
	case zeta < 1:
		return RegimeUnderdamped
	case zeta == 1:
		return RegimeCritical
	default:
		return RegimeOverdamped
	}
}
