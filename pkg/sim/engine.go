// Package sim drives the discrete-time simulation: the tick loop, the
// true-value process, realized volatility, sentiment accumulation and the
// scenario-derived metrics.
package sim

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/gammazero/deque"
	"go.uber.org/zap"

	"github.com/jerryluo457/AgenticMarketSim/pkg/agent"
	"github.com/jerryluo457/AgenticMarketSim/pkg/orderbook"
	"github.com/jerryluo457/AgenticMarketSim/pkg/protocol"
)

const (
	startPrice    = 100.0
	startVol      = 0.005
	volAlpha      = 0.01
	pauseInterval = 50 * time.Millisecond
)

// Publisher is the fire-and-forget broadcast side of the engine.
type Publisher interface {
	Publish(line string)
}

// Config assembles one simulation run.
type Config struct {
	Profile Profile
	Seed    int64

	NumMakers      int
	NumFundamental int
	NumMomentum    int
	NumNoise       int

	TickInterval time.Duration // wall pacing, 20ms for 50Hz
	DT           float64       // simulation seconds per tick
	DecayEvery   int           // broadcast/decay cadence in ticks
	DecayRate    float64
}

// DefaultConfig returns the reference pacing: 50Hz ticks of 60 simulated
// seconds, decay and broadcast every 10th tick.
func DefaultConfig(profile Profile, seed int64) Config {
	return Config{
		Profile:      profile,
		Seed:         seed,
		TickInterval: 20 * time.Millisecond,
		DT:           60,
		DecayEvery:   10,
		DecayRate:    0.05,
	}
}

// Engine owns all market state. It runs on a single goroutine; the
// protocol layer talks to it only through the command channel and the
// publisher.
type Engine struct {
	cfg  Config
	book *orderbook.Book
	ids  *agent.IDSource
	rng  *rand.Rand

	makers       []*agent.Maker
	fundamentals []*agent.Fundamental
	noise        []*agent.Noise
	momentum     []*agent.Momentum

	process Process

	commands <-chan protocol.Command
	pub      Publisher
	pending  deque.Deque[protocol.UserOrder]

	simTime       float64
	trueValue     float64
	price         float64 // last observed transaction price
	lastPrice     float64 // previous tick's price, for the vol update
	realizedVol   float64
	peak          float64
	shortInterest int64
	scenario      agent.Scenario
	paused        bool
	tick          int
	volume        uint32 // accumulated since the previous DATA frame

	sent Sentiment

	sleep func(time.Duration)
	now   func() time.Time
}

// NewEngine builds the agent population and seeds all state. Per-agent
// generators derive from the configured seed so runs are reproducible.
func NewEngine(cfg Config, commands <-chan protocol.Command, pub Publisher) *Engine {
	e := &Engine{
		cfg:         cfg,
		book:        orderbook.NewBook(),
		ids:         agent.NewIDSource(1),
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		commands:    commands,
		pub:         pub,
		trueValue:   startPrice,
		price:       startPrice,
		lastPrice:   startPrice,
		realizedVol: startVol,
		peak:        startPrice,
		sleep:       time.Sleep,
		now:         time.Now,
	}

	seed := cfg.Seed
	next := func() int64 { seed++; return seed }

	for i := 0; i < cfg.NumMakers; i++ {
		e.makers = append(e.makers, agent.NewMaker(next(), cfg.Profile.Maker))
	}
	for i := 0; i < cfg.NumFundamental; i++ {
		e.fundamentals = append(e.fundamentals, agent.NewFundamental(next()))
	}
	for i := 0; i < cfg.NumNoise; i++ {
		e.noise = append(e.noise, agent.NewNoise(next()))
	}
	for i := 0; i < cfg.NumMomentum; i++ {
		e.momentum = append(e.momentum, agent.NewMomentum(next(), startPrice, cfg.Profile.Momentum))
	}

	if cfg.Profile.SecondsPerYear > 0 {
		e.process = NewGBM(startPrice, cfg.Profile.AnnualDrift, cfg.Profile.AnnualVol,
			cfg.Profile.SecondsPerYear, cfg.DT)
	} else {
		e.process = NewShock(startPrice, cfg.Profile.ShockSigma)
	}
	return e
}

// Run executes the tick loop until STOP or context cancellation.
func (e *Engine) Run(ctx context.Context) error {
	zap.S().Infow("engine started",
		"profile", e.cfg.Profile.Name,
		"makers", len(e.makers),
		"fundamental", len(e.fundamentals),
		"momentum", len(e.momentum),
		"noise", len(e.noise))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := e.now()
		if stop := e.poll(); stop {
			zap.S().Infow("engine stopped", "ticks", e.tick)
			return nil
		}
		if e.paused {
			e.sleep(pauseInterval)
			continue
		}

		e.step()
		e.pace(start)
	}
}

// poll drains pending commands without blocking. User orders queue until
// the next unpaused tick; scenario switches propagate immediately.
func (e *Engine) poll() (stop bool) {
	for {
		select {
		case cmd := <-e.commands:
			switch cmd.Kind {
			case protocol.KindStop:
				return true
			case protocol.KindPause:
				e.paused = true
			case protocol.KindResume:
				e.paused = false
			case protocol.KindScenario:
				e.setScenario(agent.ScenarioFromInt(cmd.Scenario))
			case protocol.KindOrder:
				e.pending.PushBack(cmd.Order)
			case protocol.KindStart:
				// duplicate handshake, ignored
			}
		default:
			return false
		}
	}
}

func (e *Engine) setScenario(s agent.Scenario) {
	if s == e.scenario {
		return
	}
	zap.S().Infow("scenario switch", "from", e.scenario.String(), "to", s.String())
	e.scenario = s
	if s != agent.PumpDump {
		e.peak = 0
	}
	for _, a := range e.makers {
		a.SetScenario(s)
	}
	for _, a := range e.fundamentals {
		a.SetScenario(s)
	}
	for _, a := range e.noise {
		a.SetScenario(s)
	}
	for _, a := range e.momentum {
		a.SetScenario(s)
	}
}

// step advances the simulation by one tick.
func (e *Engine) step() {
	e.applyUserOrders()

	e.simTime += e.cfg.DT
	e.trueValue = e.process.Step(e.rng)

	mid := e.book.Mid(e.price)
	if mid > e.peak {
		e.peak = mid
	}
	obs := agent.Observation{
		Mid:  mid,
		Vol:  e.realizedVol,
		Time: e.simTime,
		Peak: e.peak,
	}

	for _, a := range e.makers {
		e.execute(a.Act(obs, e.ids), &e.sent.Maker, false)
	}
	fobs := obs
	fobs.Mid = e.price
	fobs.TrueValue = e.trueValue
	for _, a := range e.fundamentals {
		e.execute(a.Act(fobs, e.ids), &e.sent.Fundamental, true)
	}
	for _, a := range e.noise {
		e.execute(a.Act(obs, e.ids), &e.sent.Noise, false)
	}
	for _, a := range e.momentum {
		e.execute(a.Act(obs, e.ids), &e.sent.Momentum, false)
	}

	if e.price > 0 {
		ret := math.Log(e.price / e.lastPrice)
		e.realizedVol = (1-volAlpha)*e.realizedVol + volAlpha*math.Abs(ret)
	}
	e.lastPrice = e.price

	e.tick++
	if e.tick%e.cfg.DecayEvery == 0 {
		e.broadcast()
	}
}

// applyUserOrders matches queued controller orders ahead of all agent
// activity and reports each execution as a TRADE frame.
func (e *Engine) applyUserOrders() {
	for e.pending.Len() > 0 {
		u := e.pending.PopFront()
		o := orderbook.Order{
			ID:        e.ids.Next(),
			Timestamp: e.simTime,
			Price:     u.Price,
			Qty:       u.Qty,
			Side:      orderbook.BUY,
		}
		if !u.Buy {
			o.Side = orderbook.SELL
		}
		if err := orderbook.Sanitize(&o); err != nil {
			zap.S().Debugf("dropping user order: %v", err)
			continue
		}

		var filled uint32
		var notional float64
		for _, t := range e.book.AddOrder(o) {
			e.volume += t.Qty
			e.price = t.Price
			e.sent.User.Add(u.Buy, t.Qty)
			filled += t.Qty
			notional += t.Price * float64(t.Qty)
		}
		if filled > 0 {
			e.pub.Publish(protocol.TradeFrame("USER", u.Buy, filled, notional/float64(filled)))
		}
	}
}

// execute matches one agent order and accrues its fills.
func (e *Engine) execute(o *orderbook.Order, stats *ClassStats, fundamental bool) {
	if o == nil {
		return
	}
	buy := o.Side == orderbook.BUY
	for _, t := range e.book.AddOrder(*o) {
		e.volume += t.Qty
		e.price = t.Price
		stats.Add(buy, t.Qty)
		if fundamental {
			if buy {
				e.shortInterest -= int64(t.Qty)
			} else {
				e.shortInterest += int64(t.Qty)
			}
		}
	}
}

// broadcast runs the every-Nth-tick duties: order decay, the frame batch
// and the sentiment reset.
func (e *Engine) broadcast() {
	e.book.Decay(e.cfg.DecayRate, e.rng)

	e.pub.Publish(protocol.SentimentFrame(e.sent.Frame()))
	if e.cfg.Profile.EmitScenarioMetrics {
		hype, bubble, panicMeter := e.scenarioMetrics()
		e.pub.Publish(protocol.ScenarioMetricsFrame(hype, bubble, e.shortInterest, panicMeter))
	}
	e.pub.Publish(protocol.DataFrame(e.price, e.volume))
	if e.cfg.Profile.EmitBookMetrics {
		spread, liquidity := e.book.Metrics()
		e.pub.Publish(protocol.MetricsFrame(spread, liquidity))
	}

	e.sent.Reset()
	e.volume = 0
}

func (e *Engine) scenarioMetrics() (hype, bubble, panicMeter float64) {
	if e.scenario == agent.PumpDump && e.peak > 0 {
		drawdown := math.Max(0, (e.peak-e.price)/e.peak)
		hype = math.Max(0, (0.9-8.0*drawdown)*100)
	}
	if e.price > e.trueValue {
		bubble = (e.price - e.trueValue) / e.trueValue * 100
	}
	if e.scenario == agent.ShortSqueeze {
		panicMeter = math.Min(100, bubble*3)
	}
	return hype, bubble, panicMeter
}

// pace sleeps out the remainder of the tick interval.
func (e *Engine) pace(start time.Time) {
	elapsed := e.now().Sub(start)
	if d := e.cfg.TickInterval - elapsed; d > 0 {
		e.sleep(d)
	}
}
