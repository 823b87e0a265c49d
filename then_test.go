package futures

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThen_ContinuationChain(t *testing.T) {
	f := Async[int](func() int { return 2 })
	doubled := Then[int](f, func(x int) int { return x * 2 })
	plusOne := Then[int](doubled, func(x int) int { return x + 1 })

	v, err := plusOne.Get()
	require.NoError(t, err)
	require.Equal(t, 5, v)
	require.False(t, f.Valid(), "Then consumes the unique parent handle")
}

func TestThen_IdentityRoundTrip(t *testing.T) {
	f := Async[string](func() string { return "same" })
	id := Then[string](f, func(s string) string { return s })

	v, err := id.Get()
	require.NoError(t, err)
	require.Equal(t, "same", v)
}

func TestThen_ParentErrorSkipsContinuation(t *testing.T) {
	boom := errors.New("boom")
	var ran int32
	f := Async[int](func() (int, error) { return 0, boom })
	child := Then[int](f, func(x int) int {
		atomic.AddInt32(&ran, 1)
		return x
	})

	_, err := child.Get()
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 0, atomic.LoadInt32(&ran))
}

func TestThen_ContinuationErrorStoredInChild(t *testing.T) {
	bad := errors.New("bad step")
	f := Async[int](func() int { return 1 })
	child := Then[int](f, func(int) (int, error) { return 0, bad })

	_, err := child.Get()
	require.ErrorIs(t, err, bad)
}

func TestThen_OnReadyParentRunsThroughExecutor(t *testing.T) {
	ex := &manualExecutor{}
	f := MakeReadyFuture(10)
	child := ThenOn[int](ex, f, func(x int) int { return x + 1 })

	require.False(t, child.IsReady(), "ready-parent continuation must not run inline")
	ex.drain()

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 11, v)
}

func TestThen_VoidRule(t *testing.T) {
	f := Async[Void](func() error { return nil })
	child := Then[int](f, func() int { return 42 })

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestThen_PointerViewRule(t *testing.T) {
	f := Async[int](func() int { return 6 })
	child := Then[int](f, func(x *int) int { return *x * 7 })

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestThen_DoubleUnwrapRule(t *testing.T) {
	f := Async[*Future[int]](func() *Future[int] {
		return MakeReadyFuture(21)
	})
	child := Then[int](f, func(x int) int { return x * 2 })

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestThen_TupleExplodeRule(t *testing.T) {
	f := MakeReadyFuture(MakeTuple2(40, "ab"))
	child := Then[int](f, func(n int, s string) int { return n + len(s) })

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestThen_TupleOfFuturesRule(t *testing.T) {
	f := MakeReadyFuture(MakeTuple2(MakeReadyFuture(40), MakeReadyFuture("xy")))
	child := Then[int](f, func(n int, s string) int { return n + len(s) })

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestThen_SequenceOfFuturesRule(t *testing.T) {
	f := MakeReadyFuture([]*Future[int]{
		MakeReadyFuture(1), MakeReadyFuture(2), MakeReadyFuture(3),
	})
	child := Then[int](f, func(vs []int) int {
		sum := 0
		for _, v := range vs {
			sum += v
		}
		return sum
	})

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 6, v)
}

func TestThen_TokenContinuationGetsFreshStopSource(t *testing.T) {
	f := Async[int](func() int { return 1 })
	child := Then[int](f, func(tok StopToken, x int) int {
		for !tok.StopRequested() {
			runtime.Gosched()
		}
		return x + 99
	})

	require.True(t, child.StopSource().StopPossible())
	time.Sleep(5 * time.Millisecond)
	require.True(t, child.RequestStop())

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 100, v)
}

func TestThen_InheritsParentStopSource(t *testing.T) {
	parent := Async[int](func(tok StopToken) int {
		for !tok.StopRequested() {
			runtime.Gosched()
		}
		return 7
	})
	child := Then[int](parent, func(x int) int { return x * 2 })

	require.True(t, child.StopSource().StopPossible(), "stoppable unique parent shares its source")
	time.Sleep(5 * time.Millisecond)
	require.True(t, child.RequestStop(), "stop request through the child reaches the parent task")

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 14, v)
}

func TestThen_SharedParentStaysObservable(t *testing.T) {
	sf := Async[int](func() int { return 5 }).Share()
	child := Then[int](sf, func(x int) int { return x + 1 })

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 6, v)

	pv, err := sf.Get()
	require.NoError(t, err)
	require.Equal(t, 5, pv, "shared parent is not consumed by Then")
}

func TestThen_DeferredParentChainStaysDeferred(t *testing.T) {
	var started int32
	parent := Schedule[int](func() int {
		atomic.AddInt32(&started, 1)
		return 4
	})
	child := Then[int](parent, func(x int) int { return x * 10 })

	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 0, atomic.LoadInt32(&started), "nothing may launch before the chain is waited on")

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 40, v)
	require.EqualValues(t, 1, atomic.LoadInt32(&started))
}

func TestThen_NonContinuableParentPolls(t *testing.T) {
	p := NewPromise[int]()
	f, err := p.Future()
	require.NoError(t, err)

	child := Then[int](f, func(x int) int { return x * 3 })
	require.NoError(t, p.SetValue(4))

	v, err := child.Get()
	require.NoError(t, err)
	require.Equal(t, 12, v)
}

func TestThen_ContinuationsRunInAttachOrder(t *testing.T) {
	ex := &manualExecutor{}
	parent := Async[int](func() int { return 0 }, WithExecutor(ex)).Share()

	var order []int
	children := make([]*Future[int], 0, 4)
	for i := 0; i < 4; i++ {
		i := i
		children = append(children, Then[int](parent, func(x int) int {
			order = append(order, i)
			return x
		}))
	}

	ex.drain()
	for _, c := range children {
		_, err := c.Get()
		require.NoError(t, err)
	}
	require.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestThen_InvalidContinuationPanics(t *testing.T) {
	f := Async[int](func() int { return 1 })
	require.PanicsWithError(t, ErrInvalidContinuation.Error(), func() {
		Then[int](f, func(s string) int { return 0 })
	})
}

func TestThen_InvalidParentPanics(t *testing.T) {
	var f Future[int]
	require.PanicsWithError(t, ErrNoState.Error(), func() {
		Then[int](&f, func(x int) int { return x })
	})
}
