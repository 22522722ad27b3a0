//go:build !darwin && !windows && !linux

package sysinfo

import "runtime"

// sampleSystem returns basic metrics for unsupported platforms
// Falls back to Go runtime memory stats
func sampleSystem() (float64, uint64, uint64) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Use Go heap memory as an approximation
	memUsedMB := memStats.Alloc / (1024 * 1024)
	memTotalMB := memStats.Sys / (1024 * 1024)

	return -1, memUsedMB, memTotalMB
}
