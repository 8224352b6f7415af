package idx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veilauth/veil/pkg/idx"
)

func TestNew(t *testing.T) {
	a := idx.New()
	b := idx.New()

	require.False(t, a.IsZero())
	require.NotEqual(t, a, b)
	require.Less(t, a.String(), b.String(), "monotonic ids must sort by creation order")
}

func TestParse(t *testing.T) {
	id := idx.New()

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = idx.Parse("")
	require.ErrorIs(t, err, idx.ErrInvalid)

	_, err = idx.Parse("not-a-ulid")
	require.ErrorIs(t, err, idx.ErrInvalid)
}

func TestTime(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := idx.NewAt(at)
	require.WithinDuration(t, at, id.Time(), time.Millisecond)
}
