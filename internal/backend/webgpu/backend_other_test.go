//go:build !windows

package webgpu_test

import (
	"testing"

	"github.com/born-ml/gantrain/internal/backend/webgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Unavailable(t *testing.T) {
	b, err := webgpu.New()
	require.ErrorIs(t, err, webgpu.ErrUnavailable)
	assert.Nil(t, b)
	assert.False(t, webgpu.IsAvailable())
}
