package viewer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ContainerReady reports whether c can be handed to the engine: attached,
// with a positive box, and positioned so engine overlays anchor to it.
func ContainerReady(c Container) bool {
	if c == nil || !c.Attached() {
		return false
	}
	w, h := c.Size()
	if w <= 0 || h <= 0 {
		return false
	}
	return c.Position() != PositionStatic
}

// AwaitReady waits until c is ready, re-checking once per frame. When the
// timeout elapses first it still returns true: proceeding with a possibly
// unready container beats hanging. It returns false only when ctx is done.
// Callers apply a settle delay before loading either way.
func AwaitReady(ctx context.Context, c Container, timeout time.Duration) bool {
	return awaitReady(ctx, c, timeout, DefaultTimings().FrameInterval, Logger())
}

func awaitReady(ctx context.Context, c Container, timeout, frame time.Duration, log *zap.Logger) bool {
	if ContainerReady(c) {
		return true
	}
	if timeout <= 0 {
		log.Warn("container not ready and no gate timeout; proceeding")
		return ctx.Err() == nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(frame)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			w, h := 0, 0
			attached := false
			if c != nil {
				attached = c.Attached()
				w, h = c.Size()
			}
			log.Warn("container not ready before gate timeout; proceeding",
				zap.Duration("timeout", timeout),
				zap.Bool("attached", attached),
				zap.Int("width", w),
				zap.Int("height", h))
			return true
		case <-tick.C:
			if ContainerReady(c) {
				return true
			}
		}
	}
}
