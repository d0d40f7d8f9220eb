package motion

import "math"

// Wave models a sinusoidal traveling wave on a fixed-length medium.
// Damping acts as a pure exponential envelope on the whole medium, not
// as a damping ratio.
type Wave struct {
	Frequency  float64
	Amplitude  float64
	Wavelength float64
	Damping    float64
	TimeStep   float64
	WaveType   WaveKind
}

// NewWave returns a wave with the documented defaults.
func NewWave() Wave {
	return Wave{Frequency: 1, Amplitude: 1, Wavelength: 2, Damping: 0, TimeStep: 0.05, WaveType: WaveTransverse}
}

func (w Wave) Kind() Kind    { return KindWave }
func (w Wave) Step() float64 { return w.TimeStep }

// AngularFrequency returns omega = 2*pi*frequency.
func (w Wave) AngularFrequency() float64 {
	return 2 * math.Pi * w.Frequency
}

// WaveNumber returns k = 2*pi/wavelength.
func (w Wave) WaveNumber() float64 {
	return 2 * math.Pi / w.Wavelength
}

// Displacement returns amplitude*sin(k*x - omega*t)*exp(-damping*t)
// at spatial position x along the medium.
func (w Wave) Displacement(x, t float64) float64 {
	return w.Amplitude * math.Sin(w.WaveNumber()*x-w.AngularFrequency()*t) * math.Exp(-w.Damping*t)
}

// Evaluate returns the displacement at the medium origin (x = 0).
func (w Wave) Evaluate(t float64) Evaluation {
	omega := w.AngularFrequency()
	d := w.Displacement(0, t)
	v := -w.Amplitude*omega*math.Cos(-omega*t)*math.Exp(-w.Damping*t) -
		w.Damping*d
	return Evaluation{
		Time:             t,
		Displacement:     d,
		Velocity:         v,
		NaturalFrequency: omega,
		Period:           2 * math.Pi / omega,
	}
}

// Profile samples the displacement across a medium of the given length
// at time t. Used for rendering the full waveform.
func (w Wave) Profile(length float64, samples int, t float64) []float64 {
	if samples < 2 {
		samples = 2
	}
	out := make([]float64, samples)
	dx := length / float64(samples-1)
	for i := range out {
		out[i] = w.Displacement(float64(i)*dx, t)
	}
	return out
}
