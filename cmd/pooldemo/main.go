// cmd/pooldemo/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"jobpool/internal/pool"
)

func main() {
	workers := flag.Int("workers", 10, "number of workers")
	jobs := flag.Int("jobs", 100, "number of jobs to submit")
	work := flag.Duration("work", time.Second, "how long each job sleeps")
	settle := flag.Duration("settle", 5*time.Second, "how long to wait before shutting down")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	p, err := pool.New(*workers, pool.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create pool", "error", err)
		os.Exit(1)
	}

	for x := range *jobs {
		err := p.Submit(func() {
			fmt.Printf("long running task %d\n", x)
			time.Sleep(*work)
		})
		if err != nil {
			logger.Error("submit failed", "job", x, "error", err)
		}
	}

	// Let the main goroutine do something else while the pool works.
	time.Sleep(*settle)

	p.Shutdown()
	if err := p.Wait(context.Background()); err != nil {
		logger.Error("pool stopped with error", "error", err)
		os.Exit(1)
	}

	stats := p.Stats()
	logger.Info("all workers stopped", "completed", stats.Completed, "failed", stats.Failed, "rejected", stats.Rejected)
}
