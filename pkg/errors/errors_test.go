package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsCodeThroughWrapping(t *testing.T) {
	base := Wrap(CodeProviderUnavailable, "embedding request failed", fmt.Errorf("timeout"))
	wrapped := fmt.Errorf("sub-question: %w", base)

	require.True(t, IsCode(wrapped, CodeProviderUnavailable))
	require.False(t, IsCode(wrapped, CodeCacheIO))
	require.Equal(t, CodeProviderUnavailable, CodeOf(wrapped))
	require.Equal(t, "embedding request failed: timeout", base.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	require.Empty(t, CodeOf(fmt.Errorf("plain")))
	require.Empty(t, CodeOf(nil))
}
