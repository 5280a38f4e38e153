package system

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

func readMemory() (*MemoryInfo, error) {
	total, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return nil, fmt.Errorf("failed to read hw.memsize: %w", err)
	}

	out, err := exec.Command("vm_stat").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run vm_stat: %w", err)
	}
	available := parseVMStat(string(out))

	return &MemoryInfo{
		TotalBytes:     int64(total),
		AvailableBytes: available,
		UsedBytes:      int64(total) - available,
	}, nil
}

// parseVMStat counts free and inactive pages as available
func parseVMStat(out string) int64 {
	var free, inactive int64
	pageSize := int64(4096)

	pages := func(line string) int64 {
		fields := strings.Fields(line)
		n, _ := strconv.ParseInt(strings.TrimSuffix(fields[len(fields)-1], "."), 10, 64)
		return n
	}

	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "Pages free:"):
			free = pages(line)
		case strings.HasPrefix(line, "Pages inactive:"):
			inactive = pages(line)
		case strings.Contains(line, "page size of"):
			fields := strings.Fields(line)
			for i, f := range fields {
				if f == "of" && i+1 < len(fields) {
					if n, err := strconv.ParseInt(fields[i+1], 10, 64); err == nil {
						pageSize = n
					}
				}
			}
		}
	}
	return (free + inactive) * pageSize
}
