// Package agent implements the trading agent population: market makers,
// fundamental traders, noise traders and momentum traders. Agents share a
// Poisson-like wake schedule and react to the current market scenario.
package agent

import (
	"math/rand"

	"github.com/jerryluo457/AgenticMarketSim/pkg/orderbook"
)

type Scenario int

const (
	Normal Scenario = iota
	PumpDump
	ShortSqueeze
)

func (s Scenario) String() string {
	switch s {
	case PumpDump:
		return "PUMP_DUMP"
	case ShortSqueeze:
		return "SHORT_SQUEEZE"
	default:
		return "NORMAL"
	}
}

// ScenarioFromInt maps a controller scenario code to a Scenario.
// Unknown codes fall back to Normal.
func ScenarioFromInt(v int) Scenario {
	switch v {
	case 1:
		return PumpDump
	case 2:
		return ShortSqueeze
	default:
		return Normal
	}
}

type Class int

const (
	ClassMaker Class = iota
	ClassFundamental
	ClassNoise
	ClassMomentum
)

func (c Class) String() string {
	switch c {
	case ClassMaker:
		return "MARKET_MAKER"
	case ClassFundamental:
		return "FUNDAMENTAL"
	case ClassNoise:
		return "NOISE"
	default:
		return "MOMENTUM"
	}
}

// Observation is the market view handed to an agent on each tick.
// TrueValue is populated only for fundamental traders, whose Mid is the
// last transaction price rather than the book mid. Peak is the running
// peak of the mid, owned and reset by the tick loop.
type Observation struct {
	Mid       float64
	Vol       float64
	Time      float64
	TrueValue float64
	Peak      float64
}

// Agent decides at most one order per observation.
type Agent interface {
	Act(obs Observation, ids *IDSource) *orderbook.Order
	SetScenario(s Scenario)
	Class() Class
}

// IDSource hands out monotonically increasing order ids.
type IDSource struct {
	next uint64
}

func NewIDSource(start uint64) *IDSource {
	return &IDSource{next: start}
}

func (s *IDSource) Next() uint64 {
	id := s.next
	s.next++
	return id
}

// wakeSchedule implements the per-agent exponential wake pattern: an agent
// sleeps until nextAct, then reschedules itself with the given mean delay.
type wakeSchedule struct {
	nextAct float64
}

func (w *wakeSchedule) due(now float64) bool {
	return now >= w.nextAct
}

func (w *wakeSchedule) reschedule(rng *rand.Rand, now, mean float64) {
	w.nextAct = now + rng.ExpFloat64()*mean
}
