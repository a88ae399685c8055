package host

import (
	"context"
	"sync"

	"github.com/jom-io/gorig/utils/logger"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
)

var (
	host     *Serv
	hostOnce sync.Once
)

// Serv samples host resources. Each call is a fresh, point-in-time reading.
type Serv struct {
	cpuPercent func(ctx context.Context) ([]float64, error)
	virtualMem func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	partitions func(ctx context.Context) ([]disk.PartitionStat, error)
	diskUsage  func(ctx context.Context, path string) (*disk.UsageStat, error)
}

func Host() *Serv {
	hostOnce.Do(func() {
		host = &Serv{
			cpuPercent: func(ctx context.Context) ([]float64, error) {
				// interval 0 compares against the previous call
				return cpu.PercentWithContext(ctx, 0, false)
			},
			virtualMem: mem.VirtualMemoryWithContext,
			partitions: func(ctx context.Context) ([]disk.PartitionStat, error) {
				return disk.PartitionsWithContext(ctx, false)
			},
			diskUsage: disk.UsageWithContext,
		}
	})
	return host
}

// Sample never fails; whatever cannot be read is reported as zero.
func (s *Serv) Sample(ctx context.Context) SystemResources {
	res := SystemResources{CpuUsage: FormatCPU(0)}

	if percent, err := s.cpuPercent(ctx); err != nil {
		logger.Error(ctx, "Sample failed to get host CPU percent", zap.Error(err))
	} else if len(percent) > 0 {
		var sum float64
		for _, v := range percent {
			sum += v
		}
		res.CpuUsage = FormatCPU(sum / float64(len(percent)))
	}

	if vm, err := s.virtualMem(ctx); err != nil {
		logger.Error(ctx, "Sample failed to get virtual memory", zap.Error(err))
	} else {
		res.MemoryUsage = Usage{Used: toMB(vm.Used), Total: toMB(vm.Total)}
	}

	res.DiskUsage = s.sampleDisks(ctx)
	return res
}

func (s *Serv) sampleDisks(ctx context.Context) Usage {
	parts, err := s.partitions(ctx)
	if err != nil {
		logger.Error(ctx, "Sample failed to list partitions", zap.Error(err))
		if len(parts) == 0 {
			return Usage{}
		}
	}

	var total Usage
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		// bind mounts report the same device more than once
		if _, ok := seen[p.Device]; ok && p.Device != "" {
			continue
		}
		seen[p.Device] = struct{}{}

		u, err := s.diskUsage(ctx, p.Mountpoint)
		if err != nil {
			logger.Warn(ctx, "Sample skipped mountpoint", zap.String("mountpoint", p.Mountpoint), zap.Error(err))
			continue
		}
		total.Total += toMB(u.Total)
		total.Used += toMB(u.Total - u.Free)
	}
	return total
}
