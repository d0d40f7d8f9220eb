package motion

import "math"

// Projectile models undamped parabolic flight from ground level.
type Projectile struct {
	Velocity float64
	AngleDeg float64
	Gravity  float64
	TimeStep float64
}

// NewProjectile returns a projectile with the documented defaults.
func NewProjectile() Projectile {
	return Projectile{Velocity: 50, AngleDeg: 45, Gravity: 9.8, TimeStep: 0.1}
}

func (p Projectile) Kind() Kind    { return KindProjectile }
func (p Projectile) Step() float64 { return p.TimeStep }

// Evaluate returns the position at time t. Grounded is set once the
// computed height drops to or below zero for t > 0, which is the
// signal for the tick loop to stop.
func (p Projectile) Evaluate(t float64) Evaluation {
	theta := p.AngleDeg * math.Pi / 180
	vx := p.Velocity * math.Cos(theta)
	vy := p.Velocity*math.Sin(theta) - p.Gravity*t
	x := p.Velocity * math.Cos(theta) * t
	y := p.Velocity*math.Sin(theta)*t - 0.5*p.Gravity*t*t
	return Evaluation{
		Time:     t,
		X:        x,
		Y:        y,
		Velocity: math.Hypot(vx, vy),
		Grounded: t > 0 && y <= 0,
	}
}

// Range returns the analytic range v^2*sin(2*theta)/g.
func (p Projectile) Range() float64 {
	theta := p.AngleDeg * math.Pi / 180
	return p.Velocity * p.Velocity * math.Sin(2*theta) / p.Gravity
}

// MaxHeight returns the analytic apex (v*sin(theta))^2 / (2g).
func (p Projectile) MaxHeight() float64 {
	vy := p.Velocity * math.Sin(p.AngleDeg*math.Pi/180)
	return vy * vy / (2 * p.Gravity)
}

// FlightTime returns the analytic time of flight 2*v*sin(theta)/g.
func (p Projectile) FlightTime() float64 {
	return 2 * p.Velocity * math.Sin(p.AngleDeg*math.Pi/180) / p.Gravity
}
