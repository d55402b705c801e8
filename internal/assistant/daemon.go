package assistant

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxInFlight bounds how many messages are handled at once.
const maxInFlight = 16

// Run connects the adapter, schedules stored reminders, starts the digest
// and handles inbound messages until ctx is cancelled or the adapter stops
// delivering. In-flight messages finish before Run returns.
func (a *Assistant) Run(ctx context.Context) error {
	if err := a.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("assistant: connect: %w", err)
	}
	defer a.adapter.Close()

	inbound, err := a.adapter.Listen(ctx)
	if err != nil {
		return fmt.Errorf("assistant: listen: %w", err)
	}
	if _, err := a.Reload(ctx); err != nil {
		a.logger.Warn("reminders not scheduled", zap.Error(err))
	}

	digestCtx, stopDigest := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runDigest(digestCtx)
	}()
	defer wg.Wait()
	defer stopDigest()

	a.logger.Info("assistant running", zap.String("platform", a.cfg.Transport.Platform))

	var g errgroup.Group
	g.SetLimit(maxInFlight)
	defer g.Wait()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("assistant shutting down")
			return nil
		case msg, ok := <-inbound:
			if !ok {
				a.logger.Info("adapter closed inbound channel")
				return nil
			}
			g.Go(func() error {
				a.Handle(ctx, msg)
				return nil
			})
		}
	}
}
