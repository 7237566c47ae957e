// playback.go implements the playback clock driving frame selection.

package vidframe

import (
	"context"
	"time"

	"github.com/xaionaro-go/typing"
	"github.com/xaionaro-go/xsync"
)

// playbackClock maps wall time to a position within [0, duration].
type playbackClock struct {
	locker   xsync.Mutex
	now      func() time.Time
	duration typing.Optional[time.Duration]
	playing  bool
	base     time.Duration
	anchor   time.Time
}

func newPlaybackClock(now func() time.Time, duration typing.Optional[time.Duration]) *playbackClock {
	if now == nil {
		now = time.Now
	}
	return &playbackClock{now: now, duration: duration}
}

func (c *playbackClock) clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if c.duration.IsSet() && d > c.duration.Get() {
		return c.duration.Get()
	}
	return d
}

func (c *playbackClock) positionLocked() time.Duration {
	if !c.playing {
		return c.base
	}
	return c.clamp(c.base + c.now().Sub(c.anchor))
}

func (c *playbackClock) Position(ctx context.Context) time.Duration {
	return xsync.DoR1(ctx, &c.locker, c.positionLocked)
}

func (c *playbackClock) IsPlaying(ctx context.Context) bool {
	return xsync.DoR1(ctx, &c.locker, func() bool {
		return c.playing
	})
}

func (c *playbackClock) Play(ctx context.Context) {
	c.locker.Do(ctx, func() {
		if c.playing {
			return
		}
		c.anchor = c.now()
		c.playing = true
	})
}

func (c *playbackClock) Pause(ctx context.Context) {
	c.locker.Do(ctx, func() {
		if !c.playing {
			return
		}
		c.base = c.positionLocked()
		c.playing = false
	})
}

// Seek moves to d, clamped; it returns the resulting position.
func (c *playbackClock) Seek(ctx context.Context, d time.Duration) time.Duration {
	return xsync.DoR1(ctx, &c.locker, func() time.Duration {
		c.base = c.clamp(d)
		c.anchor = c.now()
		return c.base
	})
}

// SeekRelative moves by delta from the current position.
func (c *playbackClock) SeekRelative(ctx context.Context, delta time.Duration) time.Duration {
	return xsync.DoR1(ctx, &c.locker, func() time.Duration {
		c.base = c.clamp(c.positionLocked() + delta)
		c.anchor = c.now()
		return c.base
	})
}
