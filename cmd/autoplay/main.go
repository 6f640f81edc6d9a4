package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nibbler2048/nibbler/automatic"
	"github.com/nibbler2048/nibbler/config"
	"github.com/nibbler2048/nibbler/tables"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if cfg.GetBool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	// Ctrl-C stops queueing new games; finished games still get
	// summarized.
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := automatic.NewGameRunner(tables.New(),
		cfg.GetInt("num-games"), cfg.GetInt("threads"))
	runner.SetSeed(cfg.GetUint64("seed"))
	runner.SetDepthLimit(cfg.GetInt("depth-limit"))
	start := time.Now()
	if err := runner.Run(ctx); err != nil {
		log.Err(err).Msg("self-play stopped early")
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("self-play done")

	if err := runner.PrintSummary(os.Stdout); err != nil {
		log.Err(err).Msg("could not print summary")
	}

	if cfg.GetString("mem-profile") != "" {
		f, err := os.Create(cfg.GetString("mem-profile"))
		if err != nil {
			panic("could not create memory profile: " + err.Error())
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			panic("could not write memory profile: " + err.Error())
		}
	}
}
