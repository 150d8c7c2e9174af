package agent

import (
	"math/rand"

	"github.com/jerryluo457/AgenticMarketSim/pkg/orderbook"
)

// MomentumParams hold the profile-dependent momentum knobs. The trade
// trigger offset is VolCoeff*vol*mid + MidCoeff*mid; profiles set one of
// the two coefficients to zero.
type MomentumParams struct {
	WakeMean float64
	VolCoeff float64
	MidCoeff float64
	Warmup   float64
}

// Momentum follows an EMA crossover of the mid. The EMAs update on every
// observation, including ticks where the agent does not act.
type Momentum struct {
	rng      *rand.Rand
	params   MomentumParams
	emaS     float64
	emaL     float64
	scenario Scenario
	wakeSchedule
}

func NewMomentum(seed int64, startPrice float64, params MomentumParams) *Momentum {
	m := &Momentum{
		rng:    rand.New(rand.NewSource(seed)),
		params: params,
		emaS:   startPrice,
		emaL:   startPrice,
	}
	m.nextAct = params.Warmup
	return m
}

func (m *Momentum) Class() Class { return ClassMomentum }

func (m *Momentum) SetScenario(s Scenario) { m.scenario = s }

func (m *Momentum) Act(obs Observation, ids *IDSource) *orderbook.Order {
	m.emaS = 0.05*obs.Mid + 0.95*m.emaS
	m.emaL = 0.01*obs.Mid + 0.99*m.emaL

	if !m.due(obs.Time) {
		return nil
	}
	wakeMean := m.params.WakeMean
	if m.scenario != Normal {
		wakeMean /= 3.0
	}
	m.reschedule(m.rng, obs.Time, wakeMean)

	offset := m.params.VolCoeff*obs.Vol*obs.Mid + m.params.MidCoeff*obs.Mid
	signal := m.emaS - m.emaL

	var side orderbook.Side
	var price float64
	switch {
	case signal > offset:
		side, price = orderbook.BUY, obs.Mid+offset
	case signal < -offset:
		side, price = orderbook.SELL, obs.Mid-offset
	default:
		return nil
	}

	return &orderbook.Order{
		ID:        ids.Next(),
		Timestamp: obs.Time,
		Price:     orderbook.ClampPrice(price),
		Qty:       50,
		Side:      side,
	}
}
