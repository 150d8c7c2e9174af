package sim

// ClassStats accumulates the filled buy/sell volume of one agent class
// within the current broadcast window.
type ClassStats struct {
	BuyVol  int64
	SellVol int64
}

func (s *ClassStats) Add(buy bool, qty uint32) {
	if buy {
		s.BuyVol += int64(qty)
	} else {
		s.SellVol += int64(qty)
	}
}

func (s *ClassStats) Reset() {
	s.BuyVol = 0
	s.SellVol = 0
}

// Sentiment groups the per-class accumulators in broadcast order.
type Sentiment struct {
	Fundamental ClassStats
	Momentum    ClassStats
	Maker       ClassStats
	Noise       ClassStats
	User        ClassStats
}

func (s *Sentiment) Reset() {
	s.Fundamental.Reset()
	s.Momentum.Reset()
	s.Maker.Reset()
	s.Noise.Reset()
	s.User.Reset()
}

// Frame flattens the accumulators into the SENTIMENT token order.
func (s *Sentiment) Frame() [10]int64 {
	return [10]int64{
		s.Fundamental.BuyVol, s.Fundamental.SellVol,
		s.Momentum.BuyVol, s.Momentum.SellVol,
		s.Maker.BuyVol, s.Maker.SellVol,
		s.Noise.BuyVol, s.Noise.SellVol,
		s.User.BuyVol, s.User.SellVol,
	}
}
