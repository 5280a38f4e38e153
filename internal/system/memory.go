// Package system reports host memory so callers can check a working set
// against what the machine can hold.
package system

import (
	"errors"
	"fmt"
	"runtime"
)

// DefaultReserve is the memory left for the OS and other processes
const DefaultReserve = int64(512 * 1024 * 1024)

// ErrInsufficientMemory is returned when a working set exceeds usable memory
var ErrInsufficientMemory = errors.New("insufficient memory")

// MemoryInfo contains information about system memory
type MemoryInfo struct {
	TotalBytes     int64
	AvailableBytes int64
	UsedBytes      int64
}

// ReadMemory returns the current memory of the host
func ReadMemory() (*MemoryInfo, error) {
	return readMemory()
}

// Usable returns the available bytes left after holding back reserve
func (m *MemoryInfo) Usable(reserve int64) int64 {
	if m.AvailableBytes <= reserve {
		return 0
	}
	return m.AvailableBytes - reserve
}

// CheckBudget reports whether need bytes fit into usable memory
func (m *MemoryInfo) CheckBudget(need, reserve int64) error {
	usable := m.Usable(reserve)
	if need > usable {
		return fmt.Errorf("%w: need %s, usable %s of %s",
			ErrInsufficientMemory, FormatBytes(need), FormatBytes(usable), FormatBytes(m.TotalBytes))
	}
	return nil
}

// FormatBytes formats bytes as human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Platform returns the os/arch pair of the running binary
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
