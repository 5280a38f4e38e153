package system

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var procGlobalMemoryStatusEx = windows.NewLazySystemDLL("kernel32.dll").NewProc("GlobalMemoryStatusEx")

// memoryStatusEx mirrors MEMORYSTATUSEX
type memoryStatusEx struct {
	length               uint32
	memoryLoad           uint32
	totalPhys            uint64
	availPhys            uint64
	totalPageFile        uint64
	availPageFile        uint64
	totalVirtual         uint64
	availVirtual         uint64
	availExtendedVirtual uint64
}

func readMemory() (*MemoryInfo, error) {
	status := memoryStatusEx{}
	status.length = uint32(unsafe.Sizeof(status))

	if ret, _, err := procGlobalMemoryStatusEx.Call(uintptr(unsafe.Pointer(&status))); ret == 0 {
		return nil, fmt.Errorf("GlobalMemoryStatusEx failed: %w", err)
	}

	total := int64(status.totalPhys)
	available := int64(status.availPhys)
	return &MemoryInfo{
		TotalBytes:     total,
		AvailableBytes: available,
		UsedBytes:      total - available,
	}, nil
}
