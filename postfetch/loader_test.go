package postfetch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// backend answers each id after its delay and honours cancellation.
func backend(delays map[int]time.Duration) Fetcher {
	return FetchFunc(func(ctx context.Context, id int) (Post, error) {
		t := time.NewTimer(delays[id])
		defer t.Stop()
		select {
		case <-t.C:
			return Post{ID: id, Title: fmt.Sprintf("post %d", id)}, nil
		case <-ctx.Done():
			return Post{}, ErrCancelled
		}
	})
}

// stubborn answers each id after its delay even when cancelled.
func stubborn(delays map[int]time.Duration) Fetcher {
	return FetchFunc(func(ctx context.Context, id int) (Post, error) {
		time.Sleep(delays[id])
		return Post{ID: id, Title: fmt.Sprintf("post %d", id)}, nil
	})
}

func waitIdle(t *testing.T, l *Loader) Store {
	t.Helper()
	require.Eventually(t, func() bool { return !l.Store().Loading }, 2*time.Second, 5*time.Millisecond)
	return l.Store()
}

func TestLoaderFastResponseHeld(t *testing.T) {
	defer goleak.VerifyNone(t)

	hold := 100 * time.Millisecond
	var finishedAt atomic.Int64
	start := time.Now()
	l := NewLoader(backend(map[int]time.Duration{1: 10 * time.Millisecond}),
		WithMinHold(hold),
		WithOnChange(func(s Store) {
			if !s.Loading {
				finishedAt.CompareAndSwap(0, int64(time.Since(start)))
			}
		}),
	)
	defer l.Close()

	l.Load(1)
	require.True(t, l.Store().Loading, "flag is set synchronously")

	require.Eventually(t, func() bool { return l.Phase() == Holding }, time.Second, time.Millisecond)
	s := l.Store()
	require.True(t, s.Loading)
	require.Equal(t, 1, s.Post.ID)

	s = waitIdle(t, l)
	require.Equal(t, &Post{ID: 1, Title: "post 1"}, s.Post)
	require.Eventually(t, func() bool { return finishedAt.Load() != 0 }, time.Second, time.Millisecond)
	require.GreaterOrEqual(t, time.Duration(finishedAt.Load()), hold)
}

func TestLoaderSlowResponseClearsOnSettle(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoader(backend(map[int]time.Duration{1: 150 * time.Millisecond}), WithMinHold(30*time.Millisecond))
	defer l.Close()

	start := time.Now()
	l.Load(1)
	time.Sleep(60 * time.Millisecond)
	require.True(t, l.Store().Loading, "hold elapsed but request still in flight")
	require.Equal(t, Loading, l.Phase())

	s := waitIdle(t, l)
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	require.Equal(t, 1, s.Post.ID)
	require.Equal(t, Idle, l.Phase())
}

func TestLoaderLastIdentifierWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoader(backend(map[int]time.Duration{
		1: 200 * time.Millisecond,
		2: 20 * time.Millisecond,
	}), WithMinHold(50*time.Millisecond))
	defer l.Close()

	l.Load(1)
	time.Sleep(20 * time.Millisecond)
	l.Load(2)

	s := waitIdle(t, l)
	require.Equal(t, 2, s.Post.ID)

	time.Sleep(250 * time.Millisecond)
	require.Equal(t, 2, l.Store().Post.ID)
}

func TestLoaderDropsStaleSettlement(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoader(stubborn(map[int]time.Duration{
		1: 150 * time.Millisecond,
		2: 10 * time.Millisecond,
	}), WithMinHold(30*time.Millisecond))
	defer l.Close()

	l.Load(1)
	time.Sleep(10 * time.Millisecond)
	l.Load(2)

	require.Equal(t, 2, waitIdle(t, l).Post.ID)

	// Request 1 lands after request 2 and must be ignored.
	time.Sleep(200 * time.Millisecond)
	s := l.Store()
	require.False(t, s.Loading)
	require.Equal(t, 2, s.Post.ID)
}

func TestLoaderSupersededHoldCannotClearFlag(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoader(stubborn(map[int]time.Duration{
		1: 5 * time.Millisecond,
		2: 5 * time.Millisecond,
	}), WithMinHold(200*time.Millisecond))
	defer l.Close()

	l.Load(1)
	time.Sleep(100 * time.Millisecond)
	l.Load(2)

	// The first hold would have ended at 200ms.
	time.Sleep(150 * time.Millisecond)
	require.True(t, l.Store().Loading)

	require.Equal(t, 2, waitIdle(t, l).Post.ID)
}

func TestLoaderNetworkFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fail atomic.Bool
	l := NewLoader(FetchFunc(func(ctx context.Context, id int) (Post, error) {
		if fail.Load() {
			return Post{}, fmt.Errorf("%w: connection reset", ErrNetwork)
		}
		return Post{ID: id}, nil
	}), WithMinHold(30*time.Millisecond))
	defer l.Close()

	l.Load(1)
	require.Equal(t, 1, waitIdle(t, l).Post.ID)

	fail.Store(true)
	l.Load(2)
	require.True(t, l.Store().Loading)
	require.Eventually(t, func() bool { return l.Store().Post == nil }, time.Second, time.Millisecond)
	require.True(t, l.Store().Loading, "flag held after failure")

	s := waitIdle(t, l)
	require.Nil(t, s.Post)
}

func TestLoaderSameIdentifierTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoader(backend(map[int]time.Duration{4: time.Millisecond}), WithMinHold(20*time.Millisecond))
	defer l.Close()

	l.Load(4)
	first := waitIdle(t, l)
	l.Load(4)
	require.True(t, l.Store().Loading)
	second := waitIdle(t, l)
	require.Equal(t, first, second)
}

func TestLoaderCloseWhileOutstanding(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	l := NewLoader(backend(map[int]time.Duration{
		1: time.Millisecond,
		2: time.Hour,
	}), WithMinHold(20*time.Millisecond), WithOnChange(func(Store) {
		calls.Add(1)
	}))

	l.Load(1)
	require.Equal(t, 1, waitIdle(t, l).Post.ID)

	l.Load(2)
	before := l.Store()
	l.Close()
	after := calls.Load()

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, before, l.Store())
	require.Equal(t, after, calls.Load())

	// Loads after close are ignored.
	l.Load(3)
	require.Equal(t, before, l.Store())
	l.Close()
}

func TestLoaderConcurrentLoads(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoader(backend(map[int]time.Duration{}), WithMinHold(10*time.Millisecond))
	defer l.Close()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l.Load(id)
		}(i)
	}
	wg.Wait()
	l.Load(42)

	require.Equal(t, 42, waitIdle(t, l).Post.ID)
}

func TestPhaseString(t *testing.T) {
	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "loading", Loading.String())
	require.Equal(t, "holding", Holding.String())
}
