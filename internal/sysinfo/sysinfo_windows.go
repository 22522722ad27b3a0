//go:build windows

package sysinfo

import (
	"syscall"
	"time"
	"unsafe"
)

var (
	kernel32                 = syscall.NewLazyDLL("kernel32.dll")
	procGetSystemTimes       = kernel32.NewProc("GetSystemTimes")
	procGlobalMemoryStatusEx = kernel32.NewProc("GlobalMemoryStatusEx")

	// CPU sampling state
	prevIdleTime   uint64
	prevKernelTime uint64
	prevUserTime   uint64
	prevSampleTime time.Time
)

type memoryStatusEx struct {
	Length               uint32
	MemoryLoad           uint32
	TotalPhys            uint64
	AvailPhys            uint64
	TotalPageFile        uint64
	AvailPageFile        uint64
	TotalVirtual         uint64
	AvailVirtual         uint64
	AvailExtendedVirtual uint64
}

// sampleSystem returns CPU load and memory usage for Windows
func sampleSystem() (float64, uint64, uint64) {
	used, total := getMemoryUsage()
	return getCPULoad(), used, total
}

// getCPULoad returns CPU usage as 0.0-1.0 using GetSystemTimes
func getCPULoad() float64 {
	var idleTime, kernelTime, userTime syscall.Filetime

	ret, _, _ := procGetSystemTimes.Call(
		uintptr(unsafe.Pointer(&idleTime)),
		uintptr(unsafe.Pointer(&kernelTime)),
		uintptr(unsafe.Pointer(&userTime)),
	)

	if ret == 0 {
		return -1
	}

	idle := filetimeToUint64(idleTime)
	kernel := filetimeToUint64(kernelTime)
	user := filetimeToUint64(userTime)

	now := time.Now()

	// Calculate delta from previous sample
	if prevSampleTime.IsZero() {
		prevIdleTime = idle
		prevKernelTime = kernel
		prevUserTime = user
		prevSampleTime = now
		return -1 // Need two samples to calculate
	}

	idleDelta := idle - prevIdleTime
	kernelDelta := kernel - prevKernelTime
	userDelta := user - prevUserTime
	totalDelta := kernelDelta + userDelta

	// Update previous values
	prevIdleTime = idle
	prevKernelTime = kernel
	prevUserTime = user
	prevSampleTime = now

	if totalDelta == 0 {
		return 0
	}

	// CPU usage = 1 - (idle / total)
	// Note: kernel time includes idle time
	cpuUsage := 1.0 - (float64(idleDelta) / float64(totalDelta))
	if cpuUsage < 0 {
		cpuUsage = 0
	}
	if cpuUsage > 1 {
		cpuUsage = 1
	}

	return cpuUsage
}

func filetimeToUint64(ft syscall.Filetime) uint64 {
	return uint64(ft.HighDateTime)<<32 | uint64(ft.LowDateTime)
}

// getMemoryUsage returns used and total memory in MB
func getMemoryUsage() (uint64, uint64) {
	var memStatus memoryStatusEx
	memStatus.Length = uint32(unsafe.Sizeof(memStatus))

	ret, _, _ := procGlobalMemoryStatusEx.Call(uintptr(unsafe.Pointer(&memStatus)))
	if ret == 0 {
		return 0, 0
	}

	totalMB := memStatus.TotalPhys / (1024 * 1024)
	availMB := memStatus.AvailPhys / (1024 * 1024)
	usedMB := totalMB - availMB

	return usedMB, totalMB
}
