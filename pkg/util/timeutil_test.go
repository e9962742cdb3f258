package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowUTC(t *testing.T) {
	require.Equal(t, time.UTC, NowUTC().Location())
}

func TestMillisSince(t *testing.T) {
	require.GreaterOrEqual(t, MillisSince(time.Now().Add(-50*time.Millisecond)), int64(50))
	require.Zero(t, MillisSince(time.Now().Add(time.Hour)))
}
