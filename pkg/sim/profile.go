package sim

import (
	"fmt"

	"github.com/jerryluo457/AgenticMarketSim/pkg/agent"
)

// Profile selects one of the two engine presets. Both share the command
// grammar, the scenarios and the matching semantics; they differ in agent
// pacing, the true-value process and the broadcast set.
type Profile struct {
	Name string

	Maker    agent.MakerParams
	Momentum agent.MomentumParams

	// GBM parameters; SecondsPerYear == 0 selects the simple shock process.
	AnnualDrift    float64
	AnnualVol      float64
	SecondsPerYear float64
	ShockSigma     float64

	EmitScenarioMetrics bool
	EmitBookMetrics     bool
}

// RichProfile is the full scenario-aware engine.
func RichProfile() Profile {
	return Profile{
		Name:                "rich",
		Maker:               agent.MakerParams{WakeMean: 1.5, SizeMin: 100, SizeMax: 500},
		Momentum:            agent.MomentumParams{WakeMean: 3.0, VolCoeff: 0.05, Warmup: 20},
		AnnualDrift:         0.28,
		AnnualVol:           1.50,
		SecondsPerYear:      252 * 6.5 * 3600,
		EmitScenarioMetrics: true,
		EmitBookMetrics:     true,
	}
}

// LiteProfile is the slower, reduced-broadcast engine.
func LiteProfile() Profile {
	return Profile{
		Name:       "lite",
		Maker:      agent.MakerParams{WakeMean: 10, SizeMin: 10, SizeMax: 100},
		Momentum:   agent.MomentumParams{WakeMean: 3.0, MidCoeff: 0.0002, Warmup: 10},
		ShockSigma: 0.01,
	}
}

// ProfileByName resolves a configured profile name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "", "rich":
		return RichProfile(), nil
	case "lite":
		return LiteProfile(), nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q", name)
	}
}
