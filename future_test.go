package futures

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFuture_ZeroValueInvalid(t *testing.T) {
	var f Future[int]
	require.False(t, f.Valid())
	require.False(t, f.IsReady())

	_, err := f.Get()
	require.ErrorIs(t, err, ErrNoState)
	require.ErrorIs(t, f.Err(), ErrNoState)
}

func TestFuture_WaitForZeroOnUnready(t *testing.T) {
	p := NewPromise[int]()
	f, err := p.Future()
	require.NoError(t, err)

	start := time.Now()
	require.Equal(t, StatusTimeout, f.WaitFor(0))
	require.Less(t, time.Since(start), 100*time.Millisecond)

	require.NoError(t, p.SetValue(1))
}

func TestFuture_ShareGetIsIdempotent(t *testing.T) {
	f := Async[int](func() int { return 42 })
	sf := f.Share()
	require.False(t, f.Valid(), "unique handle is consumed by Share")
	require.True(t, sf.Valid())
	require.Same(t, sf, sf.Share(), "Share on a shared handle is the identity")

	v1, err := sf.Get()
	require.NoError(t, err)
	v2, err := sf.Get()
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.True(t, sf.Valid(), "shared handle survives Get")
}

func TestFuture_SharedClonesObserveSameResult(t *testing.T) {
	sf := Async[int](func() int { return 9 }).Share()
	cl := sf.Clone()

	v1, err := sf.Get()
	require.NoError(t, err)
	v2, err := cl.Get()
	require.NoError(t, err)
	require.Equal(t, v1, v2)

	sf.Join()
	cl.Join()
	require.False(t, sf.Valid())
	require.False(t, cl.Valid())
}

func TestFuture_JoinWaitsForCompletion(t *testing.T) {
	var done atomic.Bool
	f := Async[int](func() int {
		time.Sleep(30 * time.Millisecond)
		done.Store(true)
		return 1
	})

	f.Join()
	require.True(t, done.Load(), "Join must block until the task stored its result")
	require.False(t, f.Valid())
}

func TestFuture_DetachedJoinDoesNotWait(t *testing.T) {
	release := make(chan struct{})
	f := Async[int](func() int {
		<-release
		return 1
	})
	f.Detach()

	start := time.Now()
	f.Join()
	require.Less(t, time.Since(start), 100*time.Millisecond)
	require.False(t, f.Valid())
	close(release)
}

func TestFuture_ErrDoesNotConsume(t *testing.T) {
	f := Async[int](func() int { return 6 })
	require.NoError(t, f.Err())
	require.True(t, f.Valid())

	v, err := f.Get()
	require.NoError(t, err)
	require.Equal(t, 6, v)
}

func TestFuture_NotifyWhenReady(t *testing.T) {
	p := NewPromise[int]()
	f, err := p.Future()
	require.NoError(t, err)

	ch := make(chan struct{}, 1)
	h := f.NotifyWhenReady(ch)
	require.NoError(t, p.SetValue(2))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("ready notification never arrived")
	}
	f.UnnotifyWhenReady(h)
}
