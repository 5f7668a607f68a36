package ingestion

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/torvalds/internal/github"
)

type contributorSlot struct {
	ready        chan struct{}
	contributors []github.Contributor
	err          error
}

// contributorPrefetch fetches contributor lists ahead of the writer, at most
// FetchWorkers at a time. Results are consumed in repository order.
type contributorPrefetch struct {
	slots  []contributorSlot
	cancel context.CancelFunc
	done   chan struct{}
}

func (o *Orchestrator) prefetchContributors(ctx context.Context, repos []github.ContributedRepository) *contributorPrefetch {
	ctx, cancel := context.WithCancel(ctx)
	p := &contributorPrefetch{
		slots:  make([]contributorSlot, len(repos)),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for i := range p.slots {
		p.slots[i].ready = make(chan struct{})
	}

	go func() {
		defer close(p.done)
		var g errgroup.Group
		g.SetLimit(o.opts.FetchWorkers)
		for i, repo := range repos {
			slot := &p.slots[i]
			g.Go(func() error {
				defer close(slot.ready)
				slot.contributors, slot.err = o.source.FetchRepositoryContributors(ctx, repo.FullName, o.opts.ContributorLimit)
				return nil
			})
		}
		_ = g.Wait()
	}()
	return p
}

// await blocks until repository i's contributors are in. A fetch that
// failed for any reason other than cancellation yields no contributors.
func (p *contributorPrefetch) await(ctx context.Context, i int) ([]github.Contributor, error) {
	slot := &p.slots[i]
	select {
	case <-slot.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if slot.err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	return slot.contributors, nil
}

// stop cancels outstanding fetches and waits for the workers to exit.
func (p *contributorPrefetch) stop() {
	p.cancel()
	<-p.done
}
