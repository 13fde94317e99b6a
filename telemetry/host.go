package telemetry

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo describes the machine a run executes on. It is logged at startup
// so perf.csv rows can be compared across machines.
type HostInfo struct {
	LogicalCPUs  int
	PhysicalCPUs int
	GOMAXPROCS   int
	TotalMemMB   uint64
	AvailMemMB   uint64
}

// ReadHostInfo queries CPU and memory figures. Counts that cannot be read
// stay zero and are reported in the returned error.
func ReadHostInfo() (HostInfo, error) {
	info := HostInfo{GOMAXPROCS: runtime.GOMAXPROCS(0)}
	var errs []error

	if n, err := cpu.Counts(true); err != nil {
		errs = append(errs, fmt.Errorf("logical cpus: %w", err))
	} else {
		info.LogicalCPUs = n
	}
	if n, err := cpu.Counts(false); err != nil {
		errs = append(errs, fmt.Errorf("physical cpus: %w", err))
	} else {
		info.PhysicalCPUs = n
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	} else {
		info.TotalMemMB = vm.Total >> 20
		info.AvailMemMB = vm.Available >> 20
	}

	return info, errors.Join(errs...)
}

// LogValue implements slog.LogValuer.
func (h HostInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("logical_cpus", h.LogicalCPUs),
		slog.Int("physical_cpus", h.PhysicalCPUs),
		slog.Int("gomaxprocs", h.GOMAXPROCS),
		slog.Uint64("total_mem_mb", h.TotalMemMB),
		slog.Uint64("avail_mem_mb", h.AvailMemMB),
	)
}
