package system

import "testing"

func TestParseVMStat(t *testing.T) {
	out := `Mach Virtual Memory Statistics: (page size of 16384 bytes)
Pages free:                               100.
Pages active:                             500.
Pages inactive:                            50.
`
	if got, want := parseVMStat(out), int64(150*16384); got != want {
		t.Errorf("parseVMStat = %d, want %d", got, want)
	}
}
