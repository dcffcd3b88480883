package listing

import (
	"context"
	"net/url"
	"sync"
)

// Source performs the raw list read. *apiclient.Client satisfies it.
type Source interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
}

// State is what a list screen renders: the last applied page, the
// descriptor that produced it, whether the newest request is still in
// flight, and the last recovered error.
type State struct {
	Page       ResultPage
	Descriptor Descriptor
	Loading    bool
	Err        error
}

// Result reports the outcome of one Load. Superseded results were discarded
// because a newer load was issued before they resolved, or because the
// fetcher was closed.
type Result struct {
	Page       ResultPage
	Err        error
	Superseded bool
	Generation uint64
}

// Fetcher turns a descriptor into one upstream read at a time and keeps
// only the newest response.
type Fetcher struct {
	source  Source
	path    string
	dialect Dialect
	seq     Sequencer

	mu      sync.Mutex
	state   State
	applied uint64
	closed  bool
}

// NewFetcher builds a fetcher for one list endpoint. A nil sequencer falls
// back to an in-process counter.
func NewFetcher(source Source, path string, dialect Dialect, seq Sequencer) *Fetcher {
	if seq == nil {
		seq = &MemorySequencer{}
	}
	return &Fetcher{source: source, path: path, dialect: dialect, seq: seq}
}

// Load fetches the page for d. Failures are recorded in the fetcher state
// and reported in the Result; Load itself never fails.
func (f *Fetcher) Load(ctx context.Context, d Descriptor) Result {
	gen, err := f.seq.Next(ctx)
	if err != nil {
		f.mu.Lock()
		f.state.Err = err
		f.mu.Unlock()
		return Result{Err: err}
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return Result{Superseded: true, Generation: gen}
	}
	f.state.Loading = true
	f.mu.Unlock()

	page, err := f.read(ctx, d)

	latest, seqErr := f.seq.Latest(context.WithoutCancel(ctx))

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen < f.applied || (seqErr == nil && latest != gen) {
		return Result{Superseded: true, Generation: gen}
	}
	f.applied = gen
	f.state.Loading = false
	if err != nil {
		f.state.Err = err
		return Result{Err: err, Generation: gen}
	}
	f.state.Page = page
	f.state.Descriptor = d
	f.state.Err = nil
	return Result{Page: page, Generation: gen}
}

func (f *Fetcher) read(ctx context.Context, d Descriptor) (ResultPage, error) {
	body, err := f.source.Get(ctx, f.path, d.Values(f.dialect))
	if err != nil {
		return ResultPage{}, err
	}
	page, err := Unwrap(body)
	if err != nil {
		return ResultPage{}, err
	}
	if f.dialect.Paging != NoPaging {
		page = Cut(page, d, f.dialect.Paging)
	}
	return page, nil
}

// State returns a snapshot of what the screen should render.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Close ignores every response that arrives from now on.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.state.Loading = false
}
