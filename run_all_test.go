package futures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAsyncAll_CollectsEveryResult(t *testing.T) {
	w := AsyncAll[int]([]any{
		func() int { return 1 },
		func() int { return 2 },
		func() int { return 3 },
	})

	leaves, err := w.Get()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, collectValues(t, leaves))
}

func TestAsyncAny_FirstCompletionWins(t *testing.T) {
	w := AsyncAny[int]([]any{
		func() int { time.Sleep(60 * time.Millisecond); return 1 },
		func() int { return 2 },
	})

	res, err := w.Get()
	require.NoError(t, err)
	require.Equal(t, 1, res.Index)

	v, err := res.Tasks[1].Get()
	require.NoError(t, err)
	require.Equal(t, 2, v)
	res.Tasks[0].Join()
}
