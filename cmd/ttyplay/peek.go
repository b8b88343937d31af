package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ehrlich-b/ttyplay/internal/logger"
	"github.com/ehrlich-b/ttyplay/internal/peek"
	"github.com/ehrlich-b/ttyplay/internal/record"
)

// runPeek implements spec.md's -p mode: tail the last listed file for
// appended records with no pacing, ignoring every record already present.
func runPeek(opts playOptions) error {
	log := logger.Log

	if len(opts.files) == 0 {
		return fmt.Errorf("peek mode requires at least one file")
	}
	last := opts.files[len(opts.files)-1]

	info, err := os.Stat(last)
	if err != nil {
		return fmt.Errorf("peek: stat %s: %w", last, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tailer := peek.NewTailer(last, info.Size(), log)
	out := make(chan record.Record, 32)

	done := make(chan error, 1)
	go func() { done <- tailer.Run(ctx, out) }()

	log.Info("peek: tailing file", "file", last, "start_offset", info.Size())
	for rec := range out {
		if err := record.Write(os.Stdout, rec.Payload); err != nil {
			stop()
			<-done
			return err
		}
	}
	return <-done
}
