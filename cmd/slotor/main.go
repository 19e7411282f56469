// Command slotor runs a test agent. Commands are read from stdin as
// newline-delimited JSON and every report is written to stdout as a JSON line.
//
//	echo '{"type":"start_test","slot_idx":0,"config":{"drive":"E","loop_count":4,"loop_step":2}}' | slotor -demo
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/viant/slotor"
	cmemory "github.com/viant/slotor/service/controller/memory"
	"github.com/viant/slotor/service/event"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configURL := flag.String("config", "", "agent config YAML location")
	slots := flag.Int("slots", 0, "number of slots, overrides config")
	demo := flag.Bool("demo", false, "shorten harness polling for a quick demo run")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := slotor.DefaultConfig()
	if *configURL != "" {
		var err error
		if cfg, err = slotor.LoadConfig(ctx, *configURL); err != nil {
			return err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if *slots > 0 {
		cfg.Slots.Count = *slots
	}
	if *demo {
		cfg.Batch.PollInterval = 100 * time.Millisecond
		cfg.Batch.MinPassDuration = 0
	}

	srv, err := slotor.New(
		slotor.WithConfig(cfg),
		slotor.WithController(cmemory.New(cmemory.WithMaxSlots(cfg.Slots.Count))),
	)
	if err != nil {
		return err
	}
	logger := srv.Logger()
	defer func() { _ = logger.Sync() }()

	out := &lineWriter{w: os.Stdout}
	srv.Events().SetListener(func(e *event.Event[any]) {
		if err := out.write(e); err != nil {
			logger.Errorw("failed to write event", "error", err)
		}
	})

	runtime := srv.Runtime()
	if err = runtime.Start(ctx); err != nil {
		return err
	}
	go readCommands(ctx, os.Stdin, runtime, func(err error) {
		logger.Warnw("command rejected", "error", err)
	})

	<-ctx.Done()
	logger.Infow("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return runtime.Shutdown(shutdownCtx)
}

func readCommands(ctx context.Context, r io.Reader, runtime *slotor.Runtime, onError func(error)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := runtime.HandleCommand(ctx, line); err != nil {
			onError(err)
		}
	}
	if err := scanner.Err(); err != nil {
		onError(err)
	}
}

type lineWriter struct {
	mux sync.Mutex
	w   io.Writer
}

func (l *lineWriter) write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	l.mux.Lock()
	defer l.mux.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}
