//go:build linux

package sysapi

// Fake is an in-memory SystemAPI for tests, mirroring the original tool's
// MockSystem test harness (precanned now/ticks/page size/uid table).
type Fake struct {
	Now      int64
	Ticks    uint64
	PageKiB  uint64
	Users    map[uint32]string
}

// NewFake returns a Fake with common defaults (100 Hz, 4 KiB pages);
// override fields directly before use.
func NewFake() *Fake {
	return &Fake{
		Ticks:   100,
		PageKiB: 4,
		Users:   make(map[uint32]string),
	}
}

func (f *Fake) NowUnix() int64       { return f.Now }
func (f *Fake) ClockTicks() uint64   { return f.Ticks }
func (f *Fake) PageSizeKiB() uint64  { return f.PageKiB }

func (f *Fake) UserName(uid uint32) (string, bool) {
	name, ok := f.Users[uid]
	return name, ok
}
