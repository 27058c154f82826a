// Command flightcomputer runs the flight computer process: it loads
// configuration, wires up the C1-C10 components, and drives the C9
// program state machine until terminated.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rayNotGlorious/flight-with-actions/internal/config"
	"github.com/rayNotGlorious/flight-with-actions/internal/fc"
	"github.com/rayNotGlorious/flight-with-actions/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath string
		pretty     bool
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML config file overriding the defaults")
	flag.BoolVar(&pretty, "pretty", false, "use a human-readable console log writer instead of JSON")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flightcomputer: %v\n", err)
		return 1
	}

	log := telemetry.New(pretty)
	log = log.With().Str("board_id", cfg.FCBoardId).Logger()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var f *fc.FC
	done := make(chan error, 1)
	for attempt := 1; attempt <= cfg.InitRetries; attempt++ {
		f = fc.New(cfg, log)
		go func() { done <- f.Run() }()

		select {
		case err := <-done:
			// Run only returns once the state machine halts, which only
			// happens on an init failure (a healthy process loops forever).
			log.Error().Err(err).Int("attempt", attempt).Msg("init failed, retrying")
			f.Close()
			continue
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			f.Close()
			return 0
		}
	}

	log.Error().Int("retries", cfg.InitRetries).Msg("exhausted init retries, exiting")
	return 1
}
