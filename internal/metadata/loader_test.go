package metadata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/conduit-lang/boardstore/internal/board"
	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/conduit-lang/boardstore/internal/orm/schema"
	"github.com/conduit-lang/boardstore/internal/store"
	"github.com/conduit-lang/boardstore/internal/web/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu    sync.Mutex
	data  map[string][]bson.M
	fail  map[string]error
	loads map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		data: map[string][]bson.M{
			Structure: {
				{"schema": "user", "items": bson.M{"name": bson.M{"type": "string"}}},
				{"schema": "admin", "parent": "user", "lock": true, "items": bson.M{"level": bson.M{"type": "number"}}},
			},
			Board: {
				{"schema": "user", "api": "user.list"},
			},
			Configuration: {
				{"key": "title", "value": "Boards"},
				{"value": "orphan"},
			},
			I18n: {
				{"lang": "en", "key": "hello", "value": "Hello"},
				{"lang": "ja", "key": "hello", "value": "Konnichiwa"},
			},
			Validator: {{"name": "required"}},
			Route:     {{"path": "/users"}},
		},
		fail:  map[string]error{},
		loads: map[string]int{},
	}
}

func (s *fakeSource) Load(_ context.Context, collection string) ([]bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads[collection]++
	if err := s.fail[collection]; err != nil {
		return nil, err
	}
	return s.data[collection], nil
}

func (s *fakeSource) set(collection string, docs []bson.M) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[collection] = docs
}

func newLoader(t *testing.T, src Source, enabled bool) (*Loader, *cache.LRUCache) {
	t.Helper()
	c, err := cache.NewLRUCache(cache.Config{Enabled: enabled, Size: 16}, zap.NewNop().Sugar())
	require.NoError(t, err)
	return NewLoader(src, c, zap.NewNop().Sugar()), c
}

func TestLoader_LoadAll(t *testing.T) {
	ctx := context.Background()
	loader, c := newLoader(t, newFakeSource(), true)

	require.NoError(t, loader.LoadAll(ctx))
	assert.ElementsMatch(t, Collections, c.Keys())

	s, def, err := loader.Structure(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, s.Lock)
	assert.Contains(t, def, "name")
	assert.Contains(t, def, "level")
	assert.Contains(t, def, schema.FieldValid)

	b, err := loader.Board(ctx, "user.list")
	require.NoError(t, err)
	assert.Equal(t, "user", b.Schema)

	title, err := loader.Config(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, "Boards", title)
	missing, err := loader.Config(ctx, "nothing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, "Konnichiwa", loader.Message(ctx, "ja", "hello"))
	assert.Equal(t, "bye", loader.Message(ctx, "en", "bye"))

	validators, err := loader.Validators(ctx)
	require.NoError(t, err)
	assert.Len(t, validators, 1)
	routes, err := loader.Routes(ctx)
	require.NoError(t, err)
	assert.Len(t, routes, 1)
}

func TestLoader_UnknownNames(t *testing.T) {
	ctx := context.Background()
	loader, _ := newLoader(t, newFakeSource(), true)
	require.NoError(t, loader.LoadAll(ctx))

	_, _, err := loader.Structure(ctx, "ghost")
	assert.Equal(t, errs.CodeUnknownSchema, errs.CodeOf(err))

	_, err = loader.Board(ctx, "ghost.list")
	assert.Equal(t, errs.CodeUnknownBoard, errs.CodeOf(err))

	err = loader.Reload(ctx, "sessions")
	assert.True(t, errs.IsConfig(err))
	assert.Equal(t, errs.CodeUnknownCollection, errs.CodeOf(err))
}

func TestLoader_ReloadOne(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	loader, c := newLoader(t, src, true)
	require.NoError(t, loader.LoadAll(ctx))

	src.set(Board, []bson.M{
		{"schema": "user", "api": "user.list"},
		{"schema": "user", "api": "user.get"},
	})
	require.NoError(t, loader.Reload(ctx, Board))

	v, ok := c.Get(Board)
	require.True(t, ok)
	assert.Len(t, v.(map[string]*board.Board), 2)
	assert.Equal(t, 2, src.loads[Board])
	assert.Equal(t, 1, src.loads[Structure])
}

func TestLoader_BadRecordsKeepPrevious(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	loader, _ := newLoader(t, src, true)
	require.NoError(t, loader.LoadAll(ctx))

	src.set(Board, []bson.M{{"schema": "user", "api": "x", "filters": bson.A{bson.M{"key": "a", "operator": "$near"}}}})
	err := loader.Reload(ctx, Board)
	require.Error(t, err)
	assert.Equal(t, errs.CodeUnknownOperator, errs.CodeOf(err))

	_, err = loader.Board(ctx, "user.list")
	assert.NoError(t, err)
}

func TestLoader_SourceFailure(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.fail[Route] = errors.New("network down")
	loader, _ := newLoader(t, src, true)

	err := loader.LoadAll(ctx)
	require.Error(t, err)
	assert.True(t, errs.IsIO(err))
	assert.Equal(t, errs.CodeLoadFailed, errs.CodeOf(err))
}

func TestLoader_DisabledCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	loader, _ := newLoader(t, src, false)

	_, err := loader.Board(ctx, "user.list")
	require.NoError(t, err)
	_, err = loader.Board(ctx, "user.list")
	require.NoError(t, err)
	assert.Equal(t, 2, src.loads[Board])
}

type gatedSource struct {
	*fakeSource
	gate chan struct{}
}

func (s *gatedSource) Load(ctx context.Context, collection string) ([]bson.M, error) {
	<-s.gate
	return s.fakeSource.Load(ctx, collection)
}

func TestLoader_ConcurrentMissesShareOneRead(t *testing.T) {
	ctx := context.Background()
	src := &gatedSource{fakeSource: newFakeSource(), gate: make(chan struct{})}
	loader, _ := newLoader(t, src, true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := loader.Board(ctx, "user.list")
			assert.NoError(t, err)
			assert.Equal(t, "user", b.Schema)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, 1, src.loads[Board])
}

func TestStoreSource(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	mem.Seed("system", Board,
		bson.M{"schema": "user", "api": "user.list", "valid": 1},
		bson.M{"schema": "user", "api": "user.old", "valid": 0},
	)
	pool := store.NewPool(mem.Dialer(), zap.NewNop().Sugar())

	loader, _ := newLoader(t, NewStoreSource(pool, "system"), true)
	boards, err := loader.Boards(ctx)
	require.NoError(t, err)
	assert.Len(t, boards, 1)
	assert.Contains(t, boards, "user.list")
}
