package listing

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedSource answers each query only when its gate is released.
type gatedSource struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	body  map[string]string
	err   map[string]error
	calls []url.Values
}

func newGatedSource() *gatedSource {
	return &gatedSource{gates: map[string]chan struct{}{}, body: map[string]string{}, err: map[string]error{}}
}

func (s *gatedSource) respond(search, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates[search] = make(chan struct{})
	s.body[search] = body
}

func (s *gatedSource) release(search string) {
	s.mu.Lock()
	gate := s.gates[search]
	s.mu.Unlock()
	close(gate)
}

func (s *gatedSource) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	search := query.Get("search")
	s.mu.Lock()
	s.calls = append(s.calls, query)
	gate := s.gates[search]
	body := s.body[search]
	err := s.err[search]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func descriptorFor(search string) Descriptor {
	f := NewFilters([]string{"search"}, nil, 10)
	f.SetFilter("search", search)
	return f.Descriptor()
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	source := newGatedSource()
	source.respond("a", `{"items":[{"id":"A"}],"total":1}`)
	source.respond("b", `{"items":[{"id":"B"}],"total":1}`)
	fetcher := NewFetcher(source, "agenda", Dialect{Paging: OffsetPaging}, nil)

	resultA := make(chan Result, 1)
	go func() { resultA <- fetcher.Load(context.Background(), descriptorFor("a")) }()
	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return len(source.calls) == 1
	}, time.Second, time.Millisecond)

	resultB := make(chan Result, 1)
	go func() { resultB <- fetcher.Load(context.Background(), descriptorFor("b")) }()
	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return len(source.calls) == 2
	}, time.Second, time.Millisecond)

	source.release("b")
	b := <-resultB
	require.False(t, b.Superseded)
	assert.True(t, fetcher.State().Loading == false)

	source.release("a")
	a := <-resultA
	assert.True(t, a.Superseded)

	state := fetcher.State()
	require.Len(t, state.Page.Rows, 1)
	assert.Equal(t, "B", state.Page.Rows[0]["id"])
	assert.Equal(t, "b", state.Descriptor.Filters["search"])
}

func TestLoadingTracksNewestRequest(t *testing.T) {
	source := newGatedSource()
	source.respond("a", `[]`)
	fetcher := NewFetcher(source, "agenda", Dialect{}, nil)

	done := make(chan Result, 1)
	go func() { done <- fetcher.Load(context.Background(), descriptorFor("a")) }()
	require.Eventually(t, func() bool { return fetcher.State().Loading }, time.Second, time.Millisecond)

	source.release("a")
	<-done
	assert.False(t, fetcher.State().Loading)
}

func TestFailureIsRecordedNotThrown(t *testing.T) {
	source := newGatedSource()
	source.body["ok"] = `[{"id":1}]`
	upstream := errors.New("boom")
	source.err["bad"] = upstream
	fetcher := NewFetcher(source, "agenda", Dialect{}, nil)

	first := fetcher.Load(context.Background(), descriptorFor("ok"))
	require.NoError(t, first.Err)

	second := fetcher.Load(context.Background(), descriptorFor("bad"))
	assert.ErrorIs(t, second.Err, upstream)

	state := fetcher.State()
	assert.ErrorIs(t, state.Err, upstream)
	assert.False(t, state.Loading)
	assert.Len(t, state.Page.Rows, 1, "previous page stays visible")

	third := fetcher.Load(context.Background(), descriptorFor("ok"))
	require.NoError(t, third.Err)
	assert.NoError(t, fetcher.State().Err)
}

func TestCloseIgnoresLateResponses(t *testing.T) {
	source := newGatedSource()
	source.respond("a", `[{"id":1}]`)
	fetcher := NewFetcher(source, "agenda", Dialect{}, nil)

	done := make(chan Result, 1)
	go func() { done <- fetcher.Load(context.Background(), descriptorFor("a")) }()
	require.Eventually(t, func() bool { return fetcher.State().Loading }, time.Second, time.Millisecond)

	fetcher.Close()
	source.release("a")
	res := <-done
	assert.True(t, res.Superseded)
	assert.Empty(t, fetcher.State().Page.Rows)

	after := fetcher.Load(context.Background(), descriptorFor("a"))
	assert.True(t, after.Superseded)
}

func TestFetcherCutsOversizedPages(t *testing.T) {
	source := newGatedSource()
	source.body[""] = `{"rows":[{"id":1},{"id":2},{"id":3}],"total":30}`
	fetcher := NewFetcher(source, "auditoria", Dialect{Paging: PagePaging}, nil)

	d := NewFilters(nil, nil, 2).Descriptor()
	res := fetcher.Load(context.Background(), d)
	require.NoError(t, res.Err)
	assert.Len(t, res.Page.Rows, 2)
	assert.Equal(t, 30, res.Page.Total)
	assert.Equal(t, "2", source.calls[0].Get("pageSize"))
}

func TestRedisSequencerSharesGenerations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	key := SequenceKey("sess-1", "agenda")
	first := NewRedisSequencer(client, key, time.Hour)
	second := NewRedisSequencer(client, key, time.Hour)
	ctx := context.Background()

	latest, err := first.Latest(ctx)
	require.NoError(t, err)
	assert.Zero(t, latest)

	g1, err := first.Next(ctx)
	require.NoError(t, err)
	g2, err := second.Next(ctx)
	require.NoError(t, err)
	assert.Greater(t, g2, g1)

	latest, err = first.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, g2, latest)
	assert.True(t, mr.TTL(key) > 0)
}
