package telemetry

import (
	"runtime"
	"testing"
)

func TestReadHostInfo(t *testing.T) {
	info, err := ReadHostInfo()
	if err != nil {
		t.Skipf("host info unavailable: %v", err)
	}

	if info.GOMAXPROCS != runtime.GOMAXPROCS(0) {
		t.Errorf("GOMAXPROCS = %d, want %d", info.GOMAXPROCS, runtime.GOMAXPROCS(0))
	}
	if info.LogicalCPUs < 1 {
		t.Errorf("LogicalCPUs = %d, want >= 1", info.LogicalCPUs)
	}
	if info.TotalMemMB == 0 || info.AvailMemMB > info.TotalMemMB {
		t.Errorf("memory total %d MB available %d MB", info.TotalMemMB, info.AvailMemMB)
	}
}

func TestHostInfoLogValue(t *testing.T) {
	v := HostInfo{LogicalCPUs: 8, PhysicalCPUs: 4, GOMAXPROCS: 8, TotalMemMB: 16384}.LogValue()

	attrs := v.Group()
	if len(attrs) != 5 {
		t.Fatalf("got %d attrs, want 5", len(attrs))
	}
	if attrs[0].Key != "logical_cpus" || attrs[0].Value.Int64() != 8 {
		t.Errorf("first attr = %v", attrs[0])
	}
}
