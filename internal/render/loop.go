package render

import (
	"context"
	"time"

	"github.com/l1jgo/eventbatch/internal/eventbatch"
	"go.uber.org/zap"
)

// Loop drives the consumer side once per frame.
type Loop struct {
	consumer  eventbatch.Consumer
	frameRate time.Duration
	log       *zap.Logger
	frames    uint64
}

func NewLoop(c eventbatch.Consumer, frameRate time.Duration, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{consumer: c, frameRate: frameRate, log: log}
}

// Run renders frames until ctx is cancelled. It returns nil on cancel.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.frameRate)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Frame()
		case <-ctx.Done():
			l.log.Debug("render loop stopped", zap.Uint64("frames", l.frames))
			return nil
		}
	}
}

// Frame runs one consumer pass. Only the goroutine running the loop may
// call it.
func (l *Loop) Frame() {
	l.consumer.OnRenderFrame()
	l.frames++
}

func (l *Loop) Frames() uint64 { return l.frames }
