// Package protocol implements the engine-controller interface: the inbound
// text command grammar, the outbound frame grammar, and the websocket
// endpoints the engine binds for both.
package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindStart Kind = iota
	KindStop
	KindPause
	KindResume
	KindScenario
	KindOrder
)

// StartConfig carries the population sizes from the START handshake.
type StartConfig struct {
	Makers      int
	Fundamental int
	Momentum    int
	Noise       int
}

// UserOrder is a controller-injected order, attributed to "USER".
type UserOrder struct {
	Buy   bool
	Qty   uint32
	Price float64
}

// Command is one parsed control message.
type Command struct {
	Kind     Kind
	Start    StartConfig
	Scenario int
	Order    UserOrder
}

// Parse decodes a single command line. Unknown or malformed lines return
// an error; callers drop them without halting the loop.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	switch fields[0] {
	case "START":
		if len(fields) != 5 {
			return Command{}, fmt.Errorf("START wants 4 counts, got %d", len(fields)-1)
		}
		var counts [4]int
		for i := 0; i < 4; i++ {
			v, err := strconv.Atoi(fields[i+1])
			if err != nil || v < 0 {
				return Command{}, fmt.Errorf("bad START count %q", fields[i+1])
			}
			counts[i] = v
		}
		return Command{Kind: KindStart, Start: StartConfig{
			Makers:      counts[0],
			Fundamental: counts[1],
			Momentum:    counts[2],
			Noise:       counts[3],
		}}, nil

	case "STOP":
		return Command{Kind: KindStop}, nil

	case "PAUSE":
		return Command{Kind: KindPause}, nil

	case "RESUME":
		return Command{Kind: KindResume}, nil

	case "SCENARIO":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("SCENARIO wants 1 arg")
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("bad SCENARIO %q", fields[1])
		}
		return Command{Kind: KindScenario, Scenario: v}, nil

	case "ORDER":
		if len(fields) != 4 {
			return Command{}, fmt.Errorf("ORDER wants 3 args")
		}
		side, err := strconv.Atoi(fields[1])
		if err != nil || (side != 0 && side != 1) {
			return Command{}, fmt.Errorf("bad ORDER side %q", fields[1])
		}
		qty, err := strconv.Atoi(fields[2])
		if err != nil {
			return Command{}, fmt.Errorf("bad ORDER qty %q", fields[2])
		}
		if qty <= 0 {
			return Command{}, fmt.Errorf("non-positive ORDER qty %d", qty)
		}
		price, err := decimal.NewFromString(fields[3])
		if err != nil {
			return Command{}, fmt.Errorf("bad ORDER price %q", fields[3])
		}
		return Command{Kind: KindOrder, Order: UserOrder{
			Buy:   side == 0,
			Qty:   uint32(qty),
			Price: price.InexactFloat64(),
		}}, nil

	default:
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

// WaitForStart blocks until a START command arrives on the channel,
// discarding everything else. This is the one-shot engine handshake.
func WaitForStart(ctx context.Context, commands <-chan Command) (StartConfig, error) {
	for {
		select {
		case <-ctx.Done():
			return StartConfig{}, ctx.Err()
		case cmd := <-commands:
			if cmd.Kind == KindStart {
				return cmd.Start, nil
			}
		}
	}
}
