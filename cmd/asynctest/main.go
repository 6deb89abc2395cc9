// Command asynctest waits for data-available events from lifod and prints
// every value it reads.
//
// For each event it reads one value and then reads again to observe the
// one-shot end-of-stream that follows every value. With -local it runs its own
// in-process device instead and is woken by SIGIO, like a process that opened
// a device file with O_ASYNC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/richinsley/lifo"
)

func main() {
	socket := flag.String("socket", "/tmp/lifo.sock", "Unix socket of lifod")
	local := flag.Bool("local", false, "Run against an in-process device fed by -values instead of lifod")
	values := flag.Int("values", 5, "Number of values to write in -local mode")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if *local {
		err = runLocal(ctx, *values, logger)
	} else {
		err = runRemote(ctx, *socket, logger)
	}
	if err != nil && !errors.Is(err, lifo.ErrInterrupted) {
		logger.Error("asynctest failed", "error", err)
		os.Exit(1)
	}
}

// runRemote subscribes to lifod and drains one value per event.
func runRemote(ctx context.Context, socket string, logger *slog.Logger) error {
	client, err := lifo.Dial("unix", socket)
	if err != nil {
		return err
	}
	defer client.Close()

	events, err := client.Subscribe(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("pid of a current process is: %d\n", os.Getpid())

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			data, err := client.Read(ctx, 4096)
			if err != nil {
				return err
			}
			fmt.Printf("Read: %s\n", data)

			// The follow-up read returns the one-shot end-of-stream.
			if _, err := client.Read(ctx, 4096); err != nil {
				return err
			}
		}
	}
}

// runLocal creates a device in this process, registers for SIGIO, and
// writes values from a separate goroutine.
func runLocal(ctx context.Context, n int, logger *slog.Logger) error {
	cfg := lifo.DefaultConfig()
	cfg.Logger = logger
	dev, err := lifo.NewDevice(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	reader, err := dev.Open()
	if err != nil {
		return err
	}
	defer reader.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, lifo.AsyncSignals()...)
	defer signal.Stop(sigCh)

	notifier, err := lifo.NewSignalNotifier(os.Getpid())
	if err != nil {
		return err
	}
	if err := reader.SetNotifier(notifier); err != nil {
		return err
	}

	writer, err := dev.Open()
	if err != nil {
		return err
	}
	defer writer.Close()

	go func() {
		for i := 0; i < n; i++ {
			if _, err := writer.Write(ctx, []byte(fmt.Sprintf("%d\n", i))); err != nil {
				return
			}
		}
	}()

	buf := make([]byte, 4096)
	for read := 0; read < n; {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
		}
		// Signals coalesce, so drain everything that is there.
		for dev.Stats().Len > 0 && read < n {
			count, err := reader.Read(ctx, buf)
			if err != nil {
				return err
			}
			fmt.Printf("Read: %s\n", buf[:count])
			read++
			if _, err := reader.Read(ctx, buf); err != nil {
				return err
			}
		}
	}
	return nil
}
