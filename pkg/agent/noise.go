package agent

import (
	"math"
	"math/rand"

	"github.com/jerryluo457/AgenticMarketSim/pkg/orderbook"
)

// Noise trades randomly with lognormal sizes and volatility-scaled price
// impact. Under Pump-and-Dump it runs the cascading panic logic driven by
// the drawdown from the peak mid.
type Noise struct {
	rng      *rand.Rand
	scenario Scenario
	wakeSchedule
}

func NewNoise(seed int64) *Noise {
	return &Noise{rng: rand.New(rand.NewSource(seed))}
}

func (n *Noise) Class() Class { return ClassNoise }

func (n *Noise) SetScenario(s Scenario) { n.scenario = s }

func (n *Noise) Act(obs Observation, ids *IDSource) *orderbook.Order {
	if !n.due(obs.Time) {
		return nil
	}
	wakeMean := 15.0
	if n.scenario == PumpDump {
		wakeMean = 15.0 / 5.0
	}
	n.reschedule(n.rng, obs.Time, wakeMean)

	size := math.Exp(4.0 + 0.5*n.rng.NormFloat64())

	if n.scenario == PumpDump {
		return n.actPanic(obs, ids, size)
	}

	side := orderbook.BUY
	if n.scenario == ShortSqueeze {
		if n.rng.Float64() >= 0.35 {
			side = orderbook.SELL
		}
	} else if n.rng.Float64() < 0.5 {
		side = orderbook.SELL
	}

	impact := math.Abs(n.rng.NormFloat64()) * (0.05 + 0.5*obs.Vol) * obs.Mid
	price := obs.Mid + impact
	if side == orderbook.SELL {
		price = obs.Mid - impact
	}

	return &orderbook.Order{
		ID:        ids.Next(),
		Timestamp: obs.Time,
		Price:     orderbook.ClampPrice(price),
		Qty:       clipQty(size, 1, 200),
		Side:      side,
	}
}

func (n *Noise) actPanic(obs Observation, ids *IDSource, size float64) *orderbook.Order {
	drawdown := 0.0
	if obs.Peak > 0 {
		drawdown = math.Max(0, (obs.Peak-obs.Mid)/obs.Peak)
	}
	buyProb := 0.9 - 8.0*drawdown

	if buyProb < 0.05 {
		return &orderbook.Order{
			ID:        ids.Next(),
			Timestamp: obs.Time,
			Price:     orderbook.ClampPrice(obs.Mid * 0.85),
			Qty:       clipQty(size*8, 100, 2000),
			Side:      orderbook.SELL,
		}
	}

	side := orderbook.SELL
	price := obs.Mid * 0.95
	if n.rng.Float64() < buyProb {
		side = orderbook.BUY
		price = obs.Mid * 1.05
	}
	mult := 1.5
	if n.rng.Float64() < 0.2 {
		mult = 3.0
	}

	return &orderbook.Order{
		ID:        ids.Next(),
		Timestamp: obs.Time,
		Price:     orderbook.ClampPrice(price),
		Qty:       clipQty(size*mult, 1, 500),
		Side:      side,
	}
}

func clipQty(v float64, lo, hi uint32) uint32 {
	if v < float64(lo) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return uint32(v)
}
