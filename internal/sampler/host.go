package sampler

import (
	"context"
	"errors"
	"regexp"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// GopsutilCounters reads counters from the local host.
type GopsutilCounters struct{}

func (GopsutilCounters) CPUTimes(ctx context.Context) (float64, float64, error) {
	stats, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	if len(stats) == 0 {
		return 0, 0, errors.New("no cpu times reported")
	}
	busy, total := cpuBusyTotal(stats[0], runtime.GOOS)
	return busy, total, nil
}

func (GopsutilCounters) MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

func (GopsutilCounters) DiskReadBytes(ctx context.Context) (uint64, error) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return 0, err
	}
	readBytes := make(map[string]uint64, len(counters))
	for name, c := range counters {
		readBytes[name] = c.ReadBytes
	}
	return sumWholeDisks(readBytes), nil
}

// cpuBusyTotal returns busy and total jiffies. Linux already counts guest time
// inside user and nice, so it is removed there rather than added twice.
func cpuBusyTotal(stat cpu.TimesStat, goos string) (float64, float64) {
	user, nice := stat.User, stat.Nice
	guest := stat.Guest + stat.GuestNice
	if goos == "linux" {
		user -= stat.Guest
		nice -= stat.GuestNice
		guest = 0
	}
	idle := stat.Idle + stat.Iowait
	busy := user + nice + stat.System + stat.Irq + stat.Softirq + stat.Steal + guest
	return busy, busy + idle
}

var partitionSuffix = regexp.MustCompile(`^p?[0-9]+$`)

// sumWholeDisks adds read bytes for every device that is not a partition of
// another listed device (sda1 of sda, nvme0n1p2 of nvme0n1).
func sumWholeDisks(readBytes map[string]uint64) uint64 {
	var total uint64
	for name, n := range readBytes {
		if isPartition(name, readBytes) {
			continue
		}
		total += n
	}
	return total
}

func isPartition(name string, devices map[string]uint64) bool {
	for other := range devices {
		if other == name || !strings.HasPrefix(name, other) {
			continue
		}
		if partitionSuffix.MatchString(strings.TrimPrefix(name, other)) {
			return true
		}
	}
	return false
}
