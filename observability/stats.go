// Package observability exposes process self-stats for the health endpoint.
package observability

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

type ProcessStats struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Status     string  `json:"status"`
}

type StatsProvider struct {
	proc *process.Process
}

func NewStatsProvider() (*StatsProvider, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &StatsProvider{proc: p}, nil
}

// Collect retrieves memory, CPU and OS status for the running process.
func (s *StatsProvider) Collect() (ProcessStats, error) {
	memInfo, err := s.proc.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := s.proc.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}
	status, err := s.proc.Status()
	if err != nil {
		return ProcessStats{}, err
	}
	return ProcessStats{
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Status:     status,
	}, nil
}
