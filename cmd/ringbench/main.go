// ringbench drives one producer and one consumer over a descriptor ring as
// fast as they will go, verifies every unit of work round-trips intact, and
// reports throughput plus how many doorbell wakes the event index rule
// elided.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/eapache/queue"

	descring "github.com/descring/go-descring"
	"github.com/descring/go-descring/internal/bufpool"
	"github.com/descring/go-descring/internal/logging"
	"github.com/descring/go-descring/internal/notify"
)

func main() {
	var (
		ringSize = flag.Int("ring-size", descring.DefaultRingSize, "Ring capacity in slots (power of two)")
		ops      = flag.Int("ops", 1_000_000, "Units of work to push through the ring")
		batch    = flag.Int("batch", 16, "Submissions per doorbell decision")
		payload  = flag.Int("payload", 4096, "Payload bytes per unit")
		mode     = flag.String("mode", "notify", "Wait strategy: notify (sleep on doorbells) or poll (spin)")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *payload < 1 {
		logger.Error("payload must be at least 1 byte")
		os.Exit(1)
	}
	if *batch < 1 {
		*batch = 1
	}

	ring, err := descring.New(*ringSize, nil)
	if err != nil {
		logger.WithError(err).Error("failed to create ring")
		os.Exit(1)
	}
	logger = logger.WithRing(*ringSize)

	var kick, call notify.Doorbell
	if *mode == "notify" {
		kick = newDoorbell(logger.WithSide("consumer"))
		call = newDoorbell(logger.WithSide("producer"))
		defer kick.Close()
		defer call.Close()
	}

	producer := ring.NewProducer(kick)
	consumer := ring.NewConsumer(call)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting bench", "ops", *ops, "batch", *batch, "payload", *payload, "mode", *mode)
	start := time.Now()

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- runConsumer(ctx, consumer, kick, *ops)
	}()

	if err := runProducer(ctx, producer, call, *ops, *batch, uint32(*payload)); err != nil {
		logger.WithError(err).Error("producer failed")
		os.Exit(1)
	}
	if err := <-consumerErr; err != nil {
		logger.WithError(err).Error("consumer failed")
		os.Exit(1)
	}

	elapsed := time.Since(start)
	report(ring, *ops, elapsed)
}

// newDoorbell prefers an eventfd and falls back to the in-process channel
// doorbell where eventfd is unavailable.
func newDoorbell(logger *logging.Logger) notify.Doorbell {
	d, err := notify.NewEventfd()
	if err != nil {
		logger.WithError(err).Warn("eventfd unavailable, using channel doorbell")
		return notify.NewChan()
	}
	return d
}

// runProducer submits batches, rings the consumer's doorbell when one is
// owed, and reclaims completions in order, verifying each against the
// in-flight FIFO.
func runProducer(ctx context.Context, p *descring.Producer, call notify.Doorbell, total, batch int, payload uint32) error {
	inflight := queue.New()
	submitted := 0
	reclaimed := 0

	for reclaimed < total {
		if err := ctx.Err(); err != nil {
			return err
		}

		burst := 0
		for burst < batch && submitted < total {
			buf := bufpool.Get(payload)
			err := p.Submit(uint64(submitted), payload, buf, submitted)
			if descring.IsRingFull(err) {
				bufpool.Put(buf)
				break
			}
			if err != nil {
				return err
			}
			inflight.Add(submitted)
			submitted++
			burst++
		}
		if burst > 0 {
			if err := p.KickAvailable(); err != nil {
				return descring.WrapError("KICK", err)
			}
		}

		progressed := false
		for {
			comp, ok := p.Reclaim()
			if !ok {
				break
			}
			progressed = true
			want := inflight.Remove().(int)
			if got := comp.UserData.(int); got != want {
				return descring.NewError("RECLAIM", "reorder",
					fmt.Sprintf("reclaimed %d, want %d", got, want))
			}
			if comp.Len != payload-1 {
				return descring.NewError("RECLAIM", "length",
					fmt.Sprintf("completion length %d, want %d", comp.Len, payload-1))
			}
			bufpool.Put(comp.Buf.([]byte))
			reclaimed++
		}

		if progressed || burst > 0 {
			continue
		}
		if call == nil {
			runtime.Gosched()
			continue
		}
		if !p.EnableCall() {
			continue
		}
		if err := call.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runConsumer dequeues, completes with one byte shaved off the length, and
// rings the producer's doorbell when one is owed.
func runConsumer(ctx context.Context, c *descring.Consumer, kick notify.Doorbell, total int) error {
	processed := 0
	for processed < total {
		if err := ctx.Err(); err != nil {
			return err
		}

		h, ok := c.Dequeue()
		if !ok {
			if kick == nil {
				runtime.Gosched()
				continue
			}
			if !c.EnableKick() {
				continue
			}
			if err := kick.Wait(ctx); err != nil {
				return err
			}
			continue
		}

		c.Complete(h, h.Len-1)
		if err := c.CallUsed(); err != nil {
			return descring.WrapError("CALL", err)
		}
		processed++
	}
	return nil
}

func report(ring *descring.Ring, ops int, elapsed time.Duration) {
	snap := ring.Metrics().Snapshot()
	rate := float64(ops) / elapsed.Seconds()

	fmt.Printf("ops:              %d\n", ops)
	fmt.Printf("elapsed:          %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("throughput:       %.0f ops/s\n", rate)
	fmt.Printf("ring full:        %d\n", snap.RingFull)
	fmt.Printf("kicks sent:       %d (%.1f%% suppressed)\n", snap.KicksSent, snap.KickSuppressionRate*100)
	fmt.Printf("calls sent:       %d (%.1f%% suppressed)\n", snap.CallsSent, snap.CallSuppressionRate*100)
}
