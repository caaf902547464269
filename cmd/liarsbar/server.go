package main

import (
	"time"

	rand "math/rand/v2"

	"github.com/coder/quartz"

	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/cmd/liarsbar/shared"
	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/randutil"
	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/roomid"
	"github.com/Vinicius-Tineli-Paiva/Liars-Bar/internal/server"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config string `kong:"short='c',default='liarsbar.hcl',help='Path to HCL configuration file'"`
	Addr   string `kong:"short='a',help='Server address to bind to (overrides config)'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed for the server (optional)'"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	// Game side logs via zerolog, console plus a JSON file sink; the
	// websocket layer uses the charm logger.
	logger, logCloser, err := shared.SetupLogger(cfg.Server.LogLevel, cfg.Server.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	wsLogger := shared.SetupTransportLogger(cfg.Server.LogLevel)

	var rng *rand.Rand
	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
		rng = randutil.New(seed)
	} else {
		seed = time.Now().UnixNano()
		logger.Info().Int64("seed", seed).Msg("Using random seed")
		rng = randutil.New(seed)
	}

	registry := server.NewRegistry(logger, roomid.NewGenerator(nil))
	stats := server.NewMemoryStatsRecorder(logger)

	gameService := server.NewGameService(logger, registry, stats, quartz.NewReal(), rng, server.GameServiceConfig{
		HandSize:       cfg.Game.HandSize,
		TurnTimeLimit:  time.Duration(cfg.Game.TurnTimeLimitSec) * time.Second,
		ChallengeDelay: time.Duration(cfg.Game.ChallengeDelaySec) * time.Second,
	})

	wsServer := server.NewServer(addr, wsLogger)
	wsServer.SetGameService(gameService)
	gameService.SetServer(wsServer)

	logger.Info().
		Str("address", addr).
		Int("hand_size", cfg.Game.HandSize).
		Int("turn_time_limit_sec", cfg.Game.TurnTimeLimitSec).
		Int("challenge_delay_sec", cfg.Game.ChallengeDelaySec).
		Msg("Starting Liar's Bar server")

	ctx := shared.SetupSignalHandler(logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := wsServer.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down server...")
		return wsServer.Stop()
	case err := <-serverErr:
		return err
	}
}
