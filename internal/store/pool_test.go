package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conduit-lang/boardstore/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type fakeConn struct {
	Conn
	id     int
	closed atomic.Bool
}

func (c *fakeConn) Close(context.Context) error {
	c.closed.Store(true)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingDialer hands out fake connections. Dials block until release is
// closed so that callers can race on the first access.
type recordingDialer struct {
	mu      sync.Mutex
	conns   []*fakeConn
	release chan struct{}
}

func (d *recordingDialer) Dial(_ context.Context, _ string) (Conn, error) {
	if d.release != nil {
		<-d.release
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeConn{id: len(d.conns)}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *recordingDialer) open() []*fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*fakeConn
	for _, c := range d.conns {
		if !c.closed.Load() {
			out = append(out, c)
		}
	}
	return out
}

func TestPool_ReusesPrimary(t *testing.T) {
	dialer := &recordingDialer{}
	pool := NewPool(dialer.Dial, zap.NewNop().Sugar())

	a, err := pool.Get(context.Background(), "db1")
	require.NoError(t, err)
	b, err := pool.Get(context.Background(), "db1")
	require.NoError(t, err)
	c, err := pool.Get(context.Background(), "db2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Len(t, dialer.conns, 2)
}

func TestPool_SinglePrimaryUnderRace(t *testing.T) {
	const callers = 16
	clock := &fakeClock{now: time.Unix(1000, 0)}
	dialer := &recordingDialer{release: make(chan struct{})}
	pool := NewPool(dialer.Dial, zap.NewNop().Sugar(), WithClock(clock.Now), WithKeepTime(20*time.Second))

	var wg sync.WaitGroup
	got := make([]Conn, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := pool.Get(context.Background(), "db1")
			assert.NoError(t, err)
			got[i] = c
		}(i)
	}
	// give every caller a chance to miss the primary before any dial lands
	time.Sleep(50 * time.Millisecond)
	close(dialer.release)
	wg.Wait()

	for _, c := range got {
		require.NotNil(t, c)
	}
	primary, parked := pool.Stats()
	assert.Equal(t, 1, primary)
	assert.Equal(t, len(dialer.conns)-1, parked)

	// parked handles survive inside the keep time
	clock.Advance(19 * time.Second)
	first, err := pool.Get(context.Background(), "db1")
	require.NoError(t, err)
	assert.Len(t, dialer.open(), len(dialer.conns))

	clock.Advance(time.Second)
	after, err := pool.Get(context.Background(), "db1")
	require.NoError(t, err)

	open := dialer.open()
	require.Len(t, open, 1)
	assert.Same(t, open[0], after)
	assert.Same(t, first, after)
	_, parked = pool.Stats()
	assert.Equal(t, 0, parked)

	for i := 0; i < 5; i++ {
		c, err := pool.Get(context.Background(), "db1")
		require.NoError(t, err)
		assert.Same(t, after, c)
	}
}

func TestPool_DialError(t *testing.T) {
	pool := NewPool(func(context.Context, string) (Conn, error) {
		return nil, errors.New("refused")
	}, zap.NewNop().Sugar())

	_, err := pool.Get(context.Background(), "db1")
	require.Error(t, err)
	assert.True(t, errs.IsIO(err))
	assert.Equal(t, errs.CodeConnectFailed, errs.CodeOf(err))

	primary, _ := pool.Stats()
	assert.Equal(t, 0, primary)
}

func TestPool_Close(t *testing.T) {
	dialer := &recordingDialer{}
	pool := NewPool(dialer.Dial, zap.NewNop().Sugar())

	_, err := pool.Get(context.Background(), "db1")
	require.NoError(t, err)
	_, err = pool.Get(context.Background(), "db2")
	require.NoError(t, err)

	require.NoError(t, pool.Close(context.Background()))
	assert.Empty(t, dialer.open())
	primary, parked := pool.Stats()
	assert.Equal(t, 0, primary)
	assert.Equal(t, 0, parked)
}

func TestMemoryStore_ThroughPool(t *testing.T) {
	mem := NewMemoryStore()
	mem.Seed("system", "board", bson.M{"api": "a"})
	pool := NewPool(mem.Dialer(), zap.NewNop().Sugar())

	conn, err := pool.Get(context.Background(), "system")
	require.NoError(t, err)
	docs, err := conn.Find(context.Background(), "board", bson.M{}, FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []bson.M{{"api": "a"}}, docs)
}
