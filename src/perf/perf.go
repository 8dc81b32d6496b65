package perf

import (
	"context"
	"sync"
	"time"
)

// Timings for one unit of work, e.g. a CLI command. Each SQL statement executed
// under it gets a block.
type Run struct {
	Name  string
	Start time.Time
	End   time.Time

	mu     sync.Mutex
	blocks []Block
}

func NewRun(name string) *Run {
	return &Run{
		Name:  name,
		Start: time.Now(),
	}
}

// Closes any open blocks and stamps the end time.
func (r *Run) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for i := range r.blocks {
		if r.blocks[i].End.IsZero() {
			r.blocks[i].End = now
		}
	}
	r.End = now
}

type BlockHandle struct {
	run   *Run
	index int
}

func (r *Run) StartBlock(category, description string) *BlockHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blocks = append(r.blocks, Block{
		Start:       time.Now(),
		Category:    category,
		Description: description,
	})
	return &BlockHandle{run: r, index: len(r.blocks) - 1}
}

// Nil-safe, so callers can end whatever StartBlock gave them without checking
// whether a run was attached.
func (h *BlockHandle) End() {
	if h == nil || h.run == nil {
		return
	}
	h.run.mu.Lock()
	defer h.run.mu.Unlock()
	if h.run.blocks[h.index].End.IsZero() {
		h.run.blocks[h.index].End = time.Now()
	}
}

// A copy of the blocks recorded so far.
func (r *Run) Blocks() []Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Block(nil), r.blocks...)
}

func (r *Run) MsFromStart(b Block) float64 {
	return float64(b.Start.Sub(r.Start).Nanoseconds()) / 1000 / 1000
}

type Block struct {
	Start       time.Time
	End         time.Time
	Category    string
	Description string
}

func (b Block) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

func (b Block) DurationMs() float64 {
	return float64(b.Duration().Nanoseconds()) / 1000 / 1000
}

type perfContextKey struct{}

func AttachToContext(ctx context.Context, r *Run) context.Context {
	return context.WithValue(ctx, perfContextKey{}, r)
}

// Returns the run attached to ctx, or nil.
func ExtractPerf(ctx context.Context) *Run {
	r, _ := ctx.Value(perfContextKey{}).(*Run)
	return r
}

// Starts a block on the run attached to ctx, if any.
func StartBlock(ctx context.Context, category, description string) *BlockHandle {
	r := ExtractPerf(ctx)
	if r == nil {
		return nil
	}
	return r.StartBlock(category, description)
}
