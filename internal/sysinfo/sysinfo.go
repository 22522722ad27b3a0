// Package sysinfo provides lightweight host status sampling
package sysinfo

import (
	"os"
	"runtime"
)

// HostStatus contains host identity plus current CPU and memory metrics
type HostStatus struct {
	Hostname   string
	Platform   string // GOOS
	Arch       string // GOARCH
	NumCPU     int
	CPULoad    float64 // 0.0-1.0, -1 if unavailable
	MemUsedMB  uint64
	MemTotalMB uint64
	GoVersion  string
}

// GetHostStatus samples current host status. CPU and memory come from
// the platform sampler; CPU load needs two samples, so the first call
// may report -1.
func GetHostStatus() *HostStatus {
	cpuLoad, memUsed, memTotal := sampleSystem()
	hostname, _ := os.Hostname()

	return &HostStatus{
		Hostname:   hostname,
		Platform:   runtime.GOOS,
		Arch:       runtime.GOARCH,
		NumCPU:     runtime.NumCPU(),
		CPULoad:    cpuLoad,
		MemUsedMB:  memUsed,
		MemTotalMB: memTotal,
		GoVersion:  runtime.Version(),
	}
}
