package protocol

import (
	"strconv"
	"strings"
)

// Frame builders. Each frame is one UTF-8 text line of whitespace-separated
// tokens; floats are formatted with the minimal round-trippable precision.

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DataFrame reports the last price and the volume accumulated since the
// previous DATA frame.
func DataFrame(price float64, volume uint32) string {
	return "DATA " + formatFloat(price) + " " + strconv.FormatUint(uint64(volume), 10)
}

// TradeFrame reports one user order's aggregate execution: total filled
// quantity at the size-weighted average price.
func TradeFrame(agent string, buy bool, qty uint32, avgPrice float64) string {
	side := "SELL"
	if buy {
		side = "BUY"
	}
	return "TRADE " + agent + " " + side + " " +
		strconv.FormatUint(uint64(qty), 10) + " " + formatFloat(avgPrice)
}

// SentimentFrame reports buy/sell volume per agent class in the fixed
// order: fundamental, momentum, maker, noise, user.
func SentimentFrame(vols [10]int64) string {
	parts := make([]string, 0, 11)
	parts = append(parts, "SENTIMENT")
	for _, v := range vols {
		parts = append(parts, strconv.FormatInt(v, 10))
	}
	return strings.Join(parts, " ")
}

// MetricsFrame reports the top-of-book spread and liquidity.
func MetricsFrame(spread float64, liquidity int64) string {
	return "METRICS " + formatFloat(spread) + " " + strconv.FormatInt(liquidity, 10)
}

// ScenarioMetricsFrame reports hype, bubble ratio, short interest and the
// panic meter.
func ScenarioMetricsFrame(hype, bubble float64, shortInterest int64, panic float64) string {
	return "SCENARIO_METRICS " + formatFloat(hype) + " " + formatFloat(bubble) + " " +
		strconv.FormatInt(shortInterest, 10) + " " + formatFloat(panic)
}
