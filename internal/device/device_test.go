package device_test

import (
	"fmt"
	"testing"

	"github.com/born-ml/gantrain/internal/backend/cpu"
	"github.com/born-ml/gantrain/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_CPU(t *testing.T) {
	for _, name := range []string{"", "cpu", "CPU"} {
		sel, err := device.Select(name, 3, nil)
		require.NoError(t, err, name)
		backend, ok := sel.Backend.(*cpu.CPUBackend)
		require.True(t, ok)
		assert.Equal(t, 3, backend.Workers())
		assert.False(t, sel.Fallback)
		sel.Release()
		sel.Release()
	}
}

func TestSelect_WebGPUFallsBack(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...any) { warnings = append(warnings, fmt.Sprintf(format, args...)) }

	sel, err := device.Select("webgpu", 1, warn)
	require.NoError(t, err)
	defer sel.Release()
	if !sel.Fallback {
		t.Skip("WebGPU is available on this host")
	}
	assert.Equal(t, "CPU", sel.Backend.Name())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "webgpu unavailable")
}

func TestSelect_Unknown(t *testing.T) {
	_, err := device.Select("tpu", 0, nil)
	require.ErrorIs(t, err, device.ErrUnknownDevice)
}

func TestDescribe(t *testing.T) {
	info := device.Describe()
	assert.NotEmpty(t, info.Brand)
	assert.Positive(t, info.Logical)
	assert.Contains(t, info.String(), "threads")
	assert.Positive(t, device.Workers())
}

func TestRSS(t *testing.T) {
	rss, err := device.RSS()
	if err != nil {
		t.Skipf("process memory unavailable: %v", err)
	}
	assert.Positive(t, rss)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", device.FormatBytes(512))
	assert.Equal(t, "1.5 KiB", device.FormatBytes(1536))
	assert.Equal(t, "3.0 MiB", device.FormatBytes(3<<20))
}
