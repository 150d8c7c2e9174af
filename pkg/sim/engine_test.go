package sim

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerryluo457/AgenticMarketSim/pkg/agent"
	"github.com/jerryluo457/AgenticMarketSim/pkg/orderbook"
	"github.com/jerryluo457/AgenticMarketSim/pkg/protocol"
)

// capturePub collects published frames for inspection.
type capturePub struct {
	mu     sync.Mutex
	frames []string
}

func (p *capturePub) Publish(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, line)
}

func (p *capturePub) byKind(kind string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, f := range p.frames {
		if strings.HasPrefix(f, kind+" ") {
			out = append(out, f)
		}
	}
	return out
}

func newTestEngine(t *testing.T, profile Profile, counts [4]int) (*Engine, chan protocol.Command, *capturePub) {
	t.Helper()
	cfg := DefaultConfig(profile, 42)
	cfg.NumMakers = counts[0]
	cfg.NumFundamental = counts[1]
	cfg.NumMomentum = counts[2]
	cfg.NumNoise = counts[3]

	cmds := make(chan protocol.Command, 64)
	pub := &capturePub{}
	e := NewEngine(cfg, cmds, pub)
	e.sleep = func(time.Duration) {}
	return e, cmds, pub
}

func TestEngineProducesSaneFrames(t *testing.T) {
	e, _, pub := newTestEngine(t, RichProfile(), [4]int{2, 2, 2, 2})

	for i := 0; i < 100; i++ {
		e.step()
	}

	data := pub.byKind("DATA")
	require.NotEmpty(t, data)
	for _, f := range data {
		fields := strings.Fields(f)
		require.Len(t, fields, 3)
		price, err := strconv.ParseFloat(fields[1], 64)
		require.NoError(t, err)
		assert.Greater(t, price, 10.0)
		assert.Less(t, price, 1000.0)
		vol, err := strconv.Atoi(fields[2])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, vol, 0)
	}

	sentiment := pub.byKind("SENTIMENT")
	require.NotEmpty(t, sentiment)
	for _, f := range sentiment {
		fields := strings.Fields(f)
		require.Len(t, fields, 11)
		for _, tok := range fields[1:] {
			v, err := strconv.ParseInt(tok, 10, 64)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, int64(0))
		}
	}

	// rich profile broadcasts all four frame kinds every 10th tick
	assert.Len(t, pub.byKind("SCENARIO_METRICS"), len(data))
	assert.Len(t, pub.byKind("METRICS"), len(data))
}

func TestLiteProfileBroadcastSet(t *testing.T) {
	e, _, pub := newTestEngine(t, LiteProfile(), [4]int{2, 2, 2, 2})

	for i := 0; i < 50; i++ {
		e.step()
	}

	assert.NotEmpty(t, pub.byKind("DATA"))
	assert.NotEmpty(t, pub.byKind("SENTIMENT"))
	assert.Empty(t, pub.byKind("SCENARIO_METRICS"))
	assert.Empty(t, pub.byKind("METRICS"))
}

func TestBroadcastOrderWithinTick(t *testing.T) {
	e, _, pub := newTestEngine(t, RichProfile(), [4]int{1, 1, 1, 1})

	for i := 0; i < 10; i++ {
		e.step()
	}

	require.GreaterOrEqual(t, len(pub.frames), 4)
	batch := pub.frames[len(pub.frames)-4:]
	assert.True(t, strings.HasPrefix(batch[0], "SENTIMENT "))
	assert.True(t, strings.HasPrefix(batch[1], "SCENARIO_METRICS "))
	assert.True(t, strings.HasPrefix(batch[2], "DATA "))
	assert.True(t, strings.HasPrefix(batch[3], "METRICS "))
}

func TestSentimentAccountsAllFills(t *testing.T) {
	e, _, pub := newTestEngine(t, RichProfile(), [4]int{3, 3, 3, 3})

	var total int64
	for i := 0; i < 200; i++ {
		e.step()
	}
	for _, f := range pub.byKind("SENTIMENT") {
		for _, tok := range strings.Fields(f)[1:] {
			v, err := strconv.ParseInt(tok, 10, 64)
			require.NoError(t, err)
			total += v
		}
	}
	// residual accumulation since the last broadcast
	for _, v := range e.sent.Frame() {
		total += v
	}

	var volume int64
	for _, f := range pub.byKind("DATA") {
		v, err := strconv.ParseInt(strings.Fields(f)[2], 10, 64)
		require.NoError(t, err)
		volume += v
	}
	volume += int64(e.volume)

	// each fill is credited once, to the aggressing class
	assert.Equal(t, volume, total)
}

func TestUserOrderTradeFrame(t *testing.T) {
	e, cmds, pub := newTestEngine(t, RichProfile(), [4]int{0, 0, 0, 0})

	// seed liquidity, then hit it with a user order
	cmds <- protocol.Command{Kind: protocol.KindOrder, Order: protocol.UserOrder{Buy: false, Qty: 10, Price: 100}}
	require.False(t, e.poll())
	e.step()

	cmds <- protocol.Command{Kind: protocol.KindOrder, Order: protocol.UserOrder{Buy: true, Qty: 4, Price: 101}}
	require.False(t, e.poll())
	e.step()

	trades := pub.byKind("TRADE")
	require.Len(t, trades, 1)
	assert.Equal(t, "TRADE USER BUY 4 100", trades[0])

	// fills attribute to the USER sentiment bucket
	assert.Equal(t, int64(4), e.sent.User.BuyVol)
}

func TestUserOrderSanitized(t *testing.T) {
	e, cmds, pub := newTestEngine(t, RichProfile(), [4]int{0, 0, 0, 0})

	cmds <- protocol.Command{Kind: protocol.KindOrder, Order: protocol.UserOrder{Buy: true, Qty: 5, Price: 0.0001}}
	require.False(t, e.poll())
	e.step()

	// the clamped order rests at the floor instead of being rejected
	assert.Equal(t, 1, e.book.ActiveCount())
	assert.Empty(t, pub.byKind("TRADE"))
}

func TestShortInterestSign(t *testing.T) {
	e, cmds, _ := newTestEngine(t, RichProfile(), [4]int{0, 0, 0, 0})

	// seed both sides of the book with user liquidity
	cmds <- protocol.Command{Kind: protocol.KindOrder, Order: protocol.UserOrder{Buy: true, Qty: 100, Price: 100}}
	cmds <- protocol.Command{Kind: protocol.KindOrder, Order: protocol.UserOrder{Buy: false, Qty: 100, Price: 102}}
	require.False(t, e.poll())
	e.step()

	// a fundamental sell fill raises short interest
	sell := &orderbook.Order{ID: e.ids.Next(), Timestamp: e.simTime, Price: 99, Qty: 40, Side: orderbook.SELL}
	e.execute(sell, &e.sent.Fundamental, true)
	assert.Equal(t, int64(40), e.shortInterest)

	// a fundamental buy fill unwinds it
	buy := &orderbook.Order{ID: e.ids.Next(), Timestamp: e.simTime, Price: 103, Qty: 15, Side: orderbook.BUY}
	e.execute(buy, &e.sent.Fundamental, true)
	assert.Equal(t, int64(25), e.shortInterest)

	assert.Equal(t, int64(40), e.sent.Fundamental.SellVol)
	assert.Equal(t, int64(15), e.sent.Fundamental.BuyVol)
}

func TestPauseDefersUserOrders(t *testing.T) {
	e, cmds, pub := newTestEngine(t, RichProfile(), [4]int{0, 0, 0, 0})

	cmds <- protocol.Command{Kind: protocol.KindOrder, Order: protocol.UserOrder{Buy: false, Qty: 10, Price: 100}}
	require.False(t, e.poll())
	e.step()

	cmds <- protocol.Command{Kind: protocol.KindPause}
	cmds <- protocol.Command{Kind: protocol.KindOrder, Order: protocol.UserOrder{Buy: true, Qty: 10, Price: 101}}
	require.False(t, e.poll())
	require.True(t, e.paused)
	assert.Equal(t, 1, e.pending.Len())
	assert.Empty(t, pub.byKind("TRADE"))

	cmds <- protocol.Command{Kind: protocol.KindResume}
	require.False(t, e.poll())
	require.False(t, e.paused)
	e.step()

	trades := pub.byKind("TRADE")
	require.Len(t, trades, 1)
	assert.Equal(t, "TRADE USER BUY 10 100", trades[0])
}

func TestScenarioSwitchPropagatesAndHype(t *testing.T) {
	e, cmds, pub := newTestEngine(t, RichProfile(), [4]int{2, 2, 2, 2})

	cmds <- protocol.Command{Kind: protocol.KindScenario, Scenario: 1}
	require.False(t, e.poll())
	require.Equal(t, agent.PumpDump, e.scenario)

	for i := 0; i < 30; i++ {
		e.step()
	}

	var sawHype bool
	for _, f := range pub.byKind("SCENARIO_METRICS") {
		hype, err := strconv.ParseFloat(strings.Fields(f)[1], 64)
		require.NoError(t, err)
		if hype > 0 {
			sawHype = true
		}
	}
	assert.True(t, sawHype, "expected hype > 0 under Pump-and-Dump")

	// leaving the pump scenario clears the shared peak
	cmds <- protocol.Command{Kind: protocol.KindScenario, Scenario: 0}
	require.False(t, e.poll())
	assert.Equal(t, 0.0, e.peak)
}

func TestStopExitsRun(t *testing.T) {
	e, cmds, _ := newTestEngine(t, RichProfile(), [4]int{1, 1, 1, 1})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	cmds <- protocol.Command{Kind: protocol.KindStop}
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestRunHonorsContext(t *testing.T) {
	e, _, _ := newTestEngine(t, RichProfile(), [4]int{1, 1, 1, 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not observe cancellation")
	}
}

func TestGBMStaysPositive(t *testing.T) {
	g := NewGBM(100, 0.28, 1.5, 252*6.5*3600, 60)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10_000; i++ {
		v := g.Step(rng)
		require.Greater(t, v, 0.0)
	}
	// per-step vol is tiny; 10k steps should stay within an order of magnitude
	assert.Greater(t, g.Value(), 10.0)
	assert.Less(t, g.Value(), 1000.0)
}

func TestShockProcess(t *testing.T) {
	s := NewShock(100, 0.01)
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		require.Greater(t, s.Step(rng), 0.0)
	}
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("rich")
	require.NoError(t, err)
	assert.True(t, p.EmitScenarioMetrics)

	p, err = ProfileByName("lite")
	require.NoError(t, err)
	assert.False(t, p.EmitScenarioMetrics)
	assert.Equal(t, 0.01, p.ShockSigma)

	p, err = ProfileByName("")
	require.NoError(t, err)
	assert.Equal(t, "rich", p.Name)

	_, err = ProfileByName("bogus")
	assert.Error(t, err)
}
