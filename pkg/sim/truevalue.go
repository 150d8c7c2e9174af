package sim

import (
	"math"
	"math/rand"
)

// Process advances the fundamental price by one tick. Only fundamental
// traders observe it.
type Process interface {
	Step(rng *rand.Rand) float64
	Value() float64
}

// GBM is a geometric Brownian motion sampled at dt simulation seconds.
type GBM struct {
	value          float64
	drift          float64
	vol            float64
	secondsPerYear float64
	dt             float64
}

func NewGBM(start, drift, vol, secondsPerYear, dt float64) *GBM {
	return &GBM{
		value:          start,
		drift:          drift,
		vol:            vol,
		secondsPerYear: secondsPerYear,
		dt:             dt,
	}
}

func (g *GBM) Step(rng *rand.Rand) float64 {
	dtYear := g.dt / g.secondsPerYear
	drift := (g.drift - 0.5*g.vol*g.vol) * dtYear
	shock := g.vol * math.Sqrt(dtYear) * rng.NormFloat64()
	g.value *= math.Exp(drift + shock)
	return g.value
}

func (g *GBM) Value() float64 { return g.value }

// Shock is the lite-profile process: a plain multiplicative noise step.
type Shock struct {
	value float64
	sigma float64
}

func NewShock(start, sigma float64) *Shock {
	return &Shock{value: start, sigma: sigma}
}

func (s *Shock) Step(rng *rand.Rand) float64 {
	s.value *= math.Exp(s.sigma * rng.NormFloat64())
	return s.value
}

func (s *Shock) Value() float64 { return s.value }
