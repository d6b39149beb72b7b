package playback

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/observability"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// Driver ticks a scheduler in wall-clock time.
type Driver struct {
	Scheduler *scheduler.Scheduler

	// Locker guards Scheduler when other goroutines use it too (the HTTP
	// handlers). Nil means the driver is the only user.
	Locker sync.Locker

	Options Options

	// OnFrame, if set, is called after every tick with the lock held.
	OnFrame func(tick int)
}

func (d *Driver) lock() {
	if d.Locker != nil {
		d.Locker.Lock()
	}
}

func (d *Driver) unlock() {
	if d.Locker != nil {
		d.Locker.Unlock()
	}
}

// Play ticks until the scheduler is idle, ctx is done or Options.MaxTicks is
// reached, and returns the number of ticks. Stalled requests are logged and
// playback continues with the next queued request; the last such error is
// returned once playback ends.
func (d *Driver) Play(ctx context.Context) (int, error) {
	if err := d.Options.ValidateAndSetDefaults(); err != nil {
		return 0, err
	}
	hooks := observability.Playback()
	hooks.OnPlayStart(ctx, "realtime", d.Options.FrameRate)
	start := time.Now()

	ticker := time.NewTicker(d.Options.Interval())
	defer ticker.Stop()

	ticks := 0
	var lastErr error
	for {
		d.lock()
		running := d.Scheduler.Running()
		d.unlock()
		if !running {
			break
		}
		if ticks >= d.Options.MaxTicks {
			lastErr = errors.New(errors.ErrCodeStalled, "scheduler still running after %d ticks", ticks)
			break
		}

		select {
		case <-ctx.Done():
			hooks.OnPlayComplete(ctx, "realtime", ticks, time.Since(start), ctx.Err())
			return ticks, ctx.Err()
		case <-ticker.C:
		}

		ticks++
		if err := d.tick(ticks); err != nil {
			lastErr = err
		}
	}

	hooks.OnPlayComplete(ctx, "realtime", ticks, time.Since(start), lastErr)
	return ticks, lastErr
}

// Serve ticks for as long as ctx is alive, advancing the scheduler whenever
// a request is running. It returns nil when ctx is cancelled.
func (d *Driver) Serve(ctx context.Context) error {
	if err := d.Options.ValidateAndSetDefaults(); err != nil {
		return err
	}
	ticker := time.NewTicker(d.Options.Interval())
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		d.lock()
		running := d.Scheduler.Running()
		d.unlock()
		if !running {
			continue
		}
		ticks++
		_ = d.tick(ticks)
	}
}

func (d *Driver) tick(n int) error {
	d.lock()
	defer d.unlock()
	err := d.Scheduler.Tick(d.Options.Step())
	if err != nil {
		d.Options.Logger.Warn("tick failed", "tick", n, "err", err)
	}
	if d.OnFrame != nil {
		d.OnFrame(n)
	}
	return err
}
