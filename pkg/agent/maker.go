package agent

import (
	"math"
	"math/rand"

	"github.com/jerryluo457/AgenticMarketSim/pkg/orderbook"
)

// MakerParams hold the profile-dependent market maker knobs.
type MakerParams struct {
	WakeMean float64
	SizeMin  uint32
	SizeMax  uint32
}

// Maker quotes one side at random around the mid. The quoted spread scales
// with realized volatility and widens 4x under Pump-and-Dump.
type Maker struct {
	rng      *rand.Rand
	params   MakerParams
	scenario Scenario
	wakeSchedule
}

func NewMaker(seed int64, params MakerParams) *Maker {
	return &Maker{
		rng:    rand.New(rand.NewSource(seed)),
		params: params,
	}
}

func (m *Maker) Class() Class { return ClassMaker }

func (m *Maker) SetScenario(s Scenario) { m.scenario = s }

func (m *Maker) Act(obs Observation, ids *IDSource) *orderbook.Order {
	if !m.due(obs.Time) {
		return nil
	}
	m.reschedule(m.rng, obs.Time, m.params.WakeMean)

	side := orderbook.BUY
	if m.rng.Float64() < 0.5 {
		side = orderbook.SELL
	}

	jitter := 0.9 + 0.2*m.rng.Float64()
	spread := math.Max(0.01, 0.2*obs.Vol*obs.Mid) * jitter
	if m.scenario == PumpDump {
		spread *= 4.0
	}

	price := obs.Mid - spread
	if side == orderbook.SELL {
		price = obs.Mid + spread
	}

	span := int64(m.params.SizeMax-m.params.SizeMin) + 1
	qty := m.params.SizeMin + uint32(m.rng.Int63n(span))

	return &orderbook.Order{
		ID:        ids.Next(),
		Timestamp: obs.Time,
		Price:     orderbook.ClampPrice(price),
		Qty:       qty,
		Side:      side,
	}
}
