package host

import "fmt"

// Usage is a used/total pair in MB.
type Usage struct {
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
}

type SystemResources struct {
	CpuUsage    string `json:"cpuUsage"`    // host CPU usage, e.g. "12.34%"
	MemoryUsage Usage  `json:"memoryUsage"` // host memory in MB
	DiskUsage   Usage  `json:"diskUsage"`   // all mounted volumes in MB
}

func FormatCPU(percent float64) string {
	return fmt.Sprintf("%.2f%%", percent)
}

func toMB(bytes uint64) uint64 {
	return bytes / 1024 / 1024
}
