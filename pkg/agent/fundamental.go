package agent

import (
	"math"
	"math/rand"

	"github.com/jerryluo457/AgenticMarketSim/pkg/orderbook"
)

// Fundamental trades toward its private fair value, a biased view of the
// true value process. Its reference price is the last transaction price,
// not the book mid.
type Fundamental struct {
	rng      *rand.Rand
	bias     float64
	scenario Scenario
	wakeSchedule
}

func NewFundamental(seed int64) *Fundamental {
	rng := rand.New(rand.NewSource(seed))
	return &Fundamental{
		rng:  rng,
		bias: 1.0 + 0.005*rng.NormFloat64(),
	}
}

func (f *Fundamental) Class() Class { return ClassFundamental }

func (f *Fundamental) SetScenario(s Scenario) { f.scenario = s }

func (f *Fundamental) Act(obs Observation, ids *IDSource) *orderbook.Order {
	if !f.due(obs.Time) {
		return nil
	}
	wakeMean := 5.0
	if f.scenario == PumpDump {
		wakeMean = 0.5
	}
	f.reschedule(f.rng, obs.Time, wakeMean)

	fair := obs.TrueValue * f.bias
	if f.scenario == ShortSqueeze {
		fair *= 0.95
	}
	dev := (obs.Mid - fair) / fair

	switch f.scenario {
	case PumpDump:
		return f.actPump(obs, ids, dev)
	case ShortSqueeze:
		return f.actSqueeze(obs, ids, dev)
	default:
		return f.actNormal(obs, ids, fair, dev)
	}
}

func (f *Fundamental) actNormal(obs Observation, ids *IDSource, fair, dev float64) *orderbook.Order {
	if math.Abs(dev) < 0.01 {
		return nil
	}
	agg := math.Min(1.0, math.Abs(dev)/0.02)
	qty := 50 + uint32(math.Round(agg*400))

	var price float64
	side := orderbook.SELL
	if dev > 0 {
		price = (1-agg)*fair + agg*(obs.Mid*0.998)
	} else {
		side = orderbook.BUY
		price = (1-agg)*fair + agg*(obs.Mid*1.002)
	}
	return f.order(ids, obs.Time, price, qty, side)
}

func (f *Fundamental) actPump(obs Observation, ids *IDSource, dev float64) *orderbook.Order {
	if math.Abs(dev) < 0.005 {
		return nil
	}
	qty := 50 + uint32(math.Round((math.Abs(dev)/0.02)*400))
	qty = uint32(math.Max(20, float64(qty)*0.6))

	if dev > 0 {
		if f.rng.Float64() < 0.3 {
			return f.order(ids, obs.Time, obs.Mid*0.99, qty, orderbook.SELL)
		}
		ladder := 1.005 + 0.015*f.rng.Float64()
		return f.order(ids, obs.Time, obs.Mid*ladder, qty, orderbook.SELL)
	}
	return f.order(ids, obs.Time, obs.Mid*0.99, qty, orderbook.BUY)
}

func (f *Fundamental) actSqueeze(obs Observation, ids *IDSource, dev float64) *orderbook.Order {
	if dev > 0.15 {
		return f.order(ids, obs.Time, obs.Mid*1.02, 5000, orderbook.BUY)
	}
	if dev > 0 {
		qty := (50 + uint32(math.Round(math.Min(1.0, dev/0.02)*400))) * 3
		return f.order(ids, obs.Time, obs.Mid*0.995, qty, orderbook.SELL)
	}
	// shorts do not buy the dip in this regime
	return nil
}

func (f *Fundamental) order(ids *IDSource, ts, price float64, qty uint32, side orderbook.Side) *orderbook.Order {
	return &orderbook.Order{
		ID:        ids.Next(),
		Timestamp: ts,
		Price:     orderbook.ClampPrice(price),
		Qty:       qty,
		Side:      side,
	}
}
