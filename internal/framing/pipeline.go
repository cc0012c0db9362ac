package framing

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PipelineOpts configures a Pipeline's concurrency and buffering.
type PipelineOpts struct {
	// NumWorkers bounds concurrent integrity-check jobs. Zero means
	// runtime.GOMAXPROCS(0).
	NumWorkers int
	// BufferSize bounds how many in-flight jobs may be queued ahead of the
	// collector before the submitter blocks. Zero means the default of 50.
	BufferSize int
}

func (o PipelineOpts) normalized() PipelineOpts {
	if o.NumWorkers <= 0 {
		o.NumWorkers = runtime.GOMAXPROCS(0)
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 50
	}
	return o
}

// Pipeline applies an IntegrityAlgorithm to a stream of synchronized,
// derandomized blocks, decodes each block's VCDU header, and tracks
// per-VCID frame-counter gaps. Blocks are processed concurrently by a
// bounded worker pool but are emitted as Frames in the same order they
// were received, using the ordered-channel-of-channels pattern: submit
// enqueues each job's single-shot result channel onto an ordered queue in
// arrival order, and collect drains that queue in order, blocking on each
// result channel only when it's that job's turn.
type Pipeline struct {
	integrity IntegrityAlgorithm
	opts      PipelineOpts
	log       *slog.Logger

	mu          sync.Mutex
	lastCounter map[uint8]uint32
	seen        map[uint8]bool
}

// NewPipeline returns a Pipeline that checks blocks with integrity and
// honors opts.
func NewPipeline(integrity IntegrityAlgorithm, opts PipelineOpts) *Pipeline {
	return &Pipeline{
		integrity:   integrity,
		opts:        opts.normalized(),
		log:         slog.Default().With("component", "framing.Pipeline"),
		lastCounter: make(map[uint8]uint32),
		seen:        make(map[uint8]bool),
	}
}

type jobResult struct {
	frame Frame
}

// Run processes every block received on in, emitting a Frame for each on
// the returned channel. The returned channel is closed when in is closed
// and all in-flight work has drained, or when ctx is canceled. A block
// whose header fails to decode (unknown frame version) is skipped; an
// integrity-algorithm precondition failure is logged and surfaced as a
// Failed frame rather than aborting the run.
func (p *Pipeline) Run(ctx context.Context, in <-chan []byte) (<-chan Frame, error) {
	out := make(chan Frame, p.opts.BufferSize)
	ordered := make(chan chan jobResult, p.opts.BufferSize)
	sem := make(chan struct{}, p.opts.NumWorkers)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(ordered)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case block, ok := <-in:
				if !ok {
					return nil
				}
				header, err := DecodeVCDUHeader(block)
				if err != nil {
					p.log.Warn("skipping block", "error", err)
					continue
				}

				resultCh := make(chan jobResult, 1)
				select {
				case ordered <- resultCh:
				case <-ctx.Done():
					return ctx.Err()
				}

				if header.VCID == FillVCID {
					// Fill frames carry nothing worth the pool's time;
					// run the (trivially skipped) integrity stage inline
					// and resolve the job immediately.
					resultCh <- p.process(header, block)
					continue
				}

				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					return ctx.Err()
				}
				g.Go(func() error {
					defer func() { <-sem }()
					resultCh <- p.process(header, block)
					return nil
				})
			}
		}
	})

	g.Go(func() error {
		defer close(out)
		for resultCh := range ordered {
			select {
			case res := <-resultCh:
				frame := res.frame
				frame.Missing = p.missingFor(frame.Header.VCID, frame.Header.Counter)
				select {
				case out <- frame:
				case <-ctx.Done():
					return ctx.Err()
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	go func() {
		if err := g.Wait(); err != nil && p.log != nil {
			p.log.Debug("pipeline run finished", "error", err)
		}
	}()

	return out, nil
}

// process runs the integrity stage for a single block whose header has
// already been decoded. It does no shared-state mutation, so it is safe to
// run concurrently across workers; per-VCID bookkeeping happens in Run's
// collect loop so that it observes frames in stream order regardless of
// which worker finishes first.
func (p *Pipeline) process(header VCDUHeader, block []byte) jobResult {
	data, integrity, err := p.integrity.Perform(header, block)
	if err != nil {
		p.log.Warn("integrity algorithm failed", "vcid", header.VCID, "error", err)
		return jobResult{frame: Frame{Header: header, Data: block, Integrity: failedIntegrity()}}
	}
	if !integrity.IntegrityOK() {
		// Keep the received bytes, parity and all: stripped data from a
		// failed check is not trustworthy as frame content.
		data = block
	}
	return jobResult{frame: Frame{Header: header, Data: data, Integrity: integrity}}
}

// missingFor updates and returns the per-VCID frame-counter gap. The first
// frame observed on a VCID reports Missing = 0 (no prior counter to
// compare against). Only ever called from Run's collect goroutine, so the
// mutex here guards against concurrent external callers rather than Run's
// own workers.
func (p *Pipeline) missingFor(vcid uint8, counter uint32) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	missing := 0
	if p.seen[vcid] {
		missing = MissingFrames(p.lastCounter[vcid], counter)
	}
	p.seen[vcid] = true
	p.lastCounter[vcid] = counter
	return missing
}
