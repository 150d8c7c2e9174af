package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jerryluo457/AgenticMarketSim/config"
	"github.com/jerryluo457/AgenticMarketSim/pkg/logging"
	"github.com/jerryluo457/AgenticMarketSim/pkg/protocol"
	"github.com/jerryluo457/AgenticMarketSim/pkg/sim"
)

const tapeLimit = 1024

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer zap.S().Sync() // nolint

	profile, err := sim.ProfileByName(cfg.Sim.Profile)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := protocol.NewServer(cfg.MarketAddr, cfg.ControlAddr, protocol.NewTape(tapeLimit))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		zap.S().Infow("waiting for controller handshake", "control", cfg.ControlAddr)
		start, err := protocol.WaitForStart(ctx, srv.Commands())
		if err != nil {
			return err
		}

		simCfg := sim.DefaultConfig(profile, cfg.Sim.Seed)
		simCfg.NumMakers = start.Makers
		simCfg.NumFundamental = start.Fundamental
		simCfg.NumMomentum = start.Momentum
		simCfg.NumNoise = start.Noise
		if cfg.Sim.TickMillis > 0 {
			simCfg.TickInterval = time.Duration(cfg.Sim.TickMillis) * time.Millisecond
		}
		if cfg.Sim.DTSeconds > 0 {
			simCfg.DT = cfg.Sim.DTSeconds
		}
		if cfg.Sim.DecayEvery > 0 {
			simCfg.DecayEvery = cfg.Sim.DecayEvery
		}
		if cfg.Sim.DecayRate > 0 {
			simCfg.DecayRate = cfg.Sim.DecayRate
		}

		engine := sim.NewEngine(simCfg, srv.Commands(), srv.Hub())
		err = engine.Run(ctx)
		cancel()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
