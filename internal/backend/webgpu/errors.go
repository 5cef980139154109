package webgpu

import "errors"

// ErrUnavailable is returned by New when no WebGPU device can be used.
var ErrUnavailable = errors.New("webgpu: unavailable")
