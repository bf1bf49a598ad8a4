//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probe integrations.

package control

import (
	"os"
	"runtime"

	"golang.org/x/sys/cpu"
)

// RegisterPlatformProbes sets Linux-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.page_size", func() any {
		return os.Getpagesize()
	})
	dp.RegisterProbe("platform.cpu_features", func() any {
		return map[string]bool{
			"x86.sse2":   cpu.X86.HasSSE2,
			"x86.avx2":   cpu.X86.HasAVX2,
			"arm64.atom": cpu.ARM64.HasATOMICS,
		}
	})
}
