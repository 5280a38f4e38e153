//go:build !linux && !darwin && !windows

package system

import (
	"errors"
	"runtime"
)

func readMemory() (*MemoryInfo, error) {
	return nil, errors.New("memory info not supported on " + runtime.GOOS)
}
