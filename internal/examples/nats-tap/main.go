package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/ryanhamamura/mvi"
	"github.com/ryanhamamura/mvi/mvinats"
	"github.com/ryanhamamura/mvi/page"
	"github.com/ryanhamamura/mvi/state"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ps, err := mvinats.New(ctx, "./data/nats")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start embedded NATS")
	}
	if err := ps.RetainSnapshots(10, time.Hour); err != nil {
		logger.Fatal().Err(err).Msg("failed to create snapshot stream")
	}

	// ">" matches the snapshots of every runtime
	_, err = mvi.WatchSnapshots(ps, ">", func(s state.Snapshot) {
		logger.Info().Int("count", s.Count()).Msg("snapshot")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to watch snapshots")
	}

	app := mvi.New()
	app.Config(mvi.Options{
		DocumentTitle: "NATS Snapshot Tap",
		Logger:        &logger,
		PubSub:        ps,
	})

	app.Page("/", page.Home)
	app.Page("/page1", page.Counter, page.Props{Title: "Page 1"})
	app.Page("/page2", page.Counter, page.Props{Title: "Page 2"})

	app.Start()
}
