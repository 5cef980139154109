// Package device picks the compute backend and reports on the host it runs
// on: CPU model and features through cpuid, resident memory through
// gopsutil.
package device

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/born-ml/gantrain/internal/backend/cpu"
	"github.com/born-ml/gantrain/internal/backend/webgpu"
	"github.com/born-ml/gantrain/internal/parallel"
	"github.com/born-ml/gantrain/internal/tensor"
	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/process"
)

// Device names accepted by Select.
const (
	CPU    = "cpu"
	WebGPU = "webgpu"
)

// ErrUnknownDevice is returned by Select for names other than cpu and webgpu.
var ErrUnknownDevice = errors.New("device: unknown device")

// Selection is a ready backend plus the function releasing it.
type Selection struct {
	Backend tensor.Backend
	// Fallback is set when webgpu was requested but the CPU is used.
	Fallback bool
	release  func()
}

// Release frees device resources. It is safe to call more than once.
func (s *Selection) Release() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}

// Select returns the backend called name. workers bounds the CPU fan-out;
// zero uses Workers(). When webgpu is unavailable the CPU backend is
// returned and warn, if set, is told why.
func Select(name string, workers int, warn func(format string, args ...any)) (*Selection, error) {
	if workers <= 0 {
		workers = Workers()
	}
	host := cpu.NewWithConfig(parallel.WithWorkers(workers))

	switch strings.ToLower(name) {
	case "", CPU:
		return &Selection{Backend: host}, nil
	case WebGPU:
		gpu, err := webgpu.New()
		if err != nil {
			if warn != nil {
				warn("webgpu unavailable, using cpu: %v", err)
			}
			return &Selection{Backend: host, Fallback: true}, nil
		}
		return &Selection{Backend: gpu, release: gpu.Release}, nil
	default:
		return nil, fmt.Errorf("%w %q (want %s or %s)", ErrUnknownDevice, name, CPU, WebGPU)
	}
}

// Workers is the default CPU fan-out: one worker per physical core when
// cpuid can tell, every logical CPU otherwise.
func Workers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Info describes the host CPU.
type Info struct {
	Brand    string
	Physical int
	Logical  int
	// Features lists the SIMD extensions the kernels can benefit from.
	Features []string
}

func (i Info) String() string {
	features := "none"
	if len(i.Features) > 0 {
		features = strings.Join(i.Features, ",")
	}
	return fmt.Sprintf("%s (%d cores, %d threads, %s)", i.Brand, i.Physical, i.Logical, features)
}

var simd = []struct {
	name string
	ids  []cpuid.FeatureID
}{
	{"avx2", []cpuid.FeatureID{cpuid.AVX2}},
	{"fma3", []cpuid.FeatureID{cpuid.FMA3}},
	{"avx512", []cpuid.FeatureID{cpuid.AVX512F, cpuid.AVX512DQ}},
	{"neon", []cpuid.FeatureID{cpuid.ASIMD}},
}

// Describe reports the host CPU.
func Describe() Info {
	info := Info{
		Brand:    strings.TrimSpace(cpuid.CPU.BrandName),
		Physical: cpuid.CPU.PhysicalCores,
		Logical:  cpuid.CPU.LogicalCores,
	}
	if info.Brand == "" {
		info.Brand = runtime.GOARCH
	}
	if info.Logical <= 0 {
		info.Logical = runtime.NumCPU()
	}
	for _, f := range simd {
		if cpuid.CPU.Supports(f.ids...) {
			info.Features = append(info.Features, f.name)
		}
	}
	return info
}

// RSS returns the resident set size of this process in bytes.
func RSS() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: pids fit in int32
	if err != nil {
		return 0, fmt.Errorf("failed to get process: %w", err)
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to get memory info: %w", err)
	}
	return mem.RSS, nil
}

// FormatBytes renders n with a binary unit, e.g. "12.5 MiB".
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
