package diagnostics

import (
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostMetrics is a snapshot of the machine the client runs on.
type HostMetrics struct {
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	CPUModel   string `json:"cpuModel,omitempty"`
	CPUThreads int    `json:"cpuThreads"`

	MemTotal   uint64  `json:"memTotal"`
	MemUsed    uint64  `json:"memUsed"`
	MemPercent float64 `json:"memPercent"`

	// Disk is measured on the filesystem holding the data directory.
	DiskPath    string  `json:"diskPath"`
	DiskFree    uint64  `json:"diskFree"`
	DiskPercent float64 `json:"diskPercent"`

	LoadAvg1 float64 `json:"loadAvg1,omitempty"`
}

// Swapped in tests.
var (
	virtualMemory = mem.VirtualMemory
	diskUsage     = disk.Usage
	cpuInfo       = cpu.Info
	cpuCounts     = cpu.Counts
	loadAvg       = load.Avg
)

// CollectHost gathers host metrics. Fields that cannot be read stay zero.
func CollectHost(diskPath string) HostMetrics {
	m := HostMetrics{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		DiskPath: diskPath,
	}

	if infos, err := cpuInfo(); err == nil && len(infos) > 0 {
		m.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if threads, err := cpuCounts(true); err == nil {
		m.CPUThreads = threads
	}
	if vm, err := virtualMemory(); err == nil {
		m.MemTotal = vm.Total
		m.MemUsed = vm.Used
		m.MemPercent = vm.UsedPercent
	}
	if usage, err := diskUsage(diskPath); err == nil {
		m.DiskFree = usage.Free
		m.DiskPercent = usage.UsedPercent
	}
	if avg, err := loadAvg(); err == nil {
		m.LoadAvg1 = avg.Load1
	}
	return m
}
