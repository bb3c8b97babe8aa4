//go:build linux

// Package sysapi provides the SystemAPI port: the clock, page size,
// CLK_TCK, and uid→user-name lookup that the sampler needs but that must be
// fakeable in tests.
package sysapi

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"time"
)

// SystemAPI bundles the small set of environment facts the sampler needs
// beyond raw /proc text.
type SystemAPI interface {
	// NowUnix returns the current wall-clock time as epoch seconds.
	NowUnix() int64
	// ClockTicks returns CLK_TCK, the kernel's jiffies-per-second constant.
	ClockTicks() uint64
	// PageSizeKiB returns the system memory page size in KiB.
	PageSizeKiB() uint64
	// UserName resolves a uid to a display name. ok is false when the
	// lookup failed and the caller should fall back to "_user_<uid>".
	UserName(uid uint32) (name string, ok bool)
}

// Real is the production SystemAPI, backed by the OS.
type Real struct {
	// cache avoids repeated /etc/passwd lookups within one snapshot; the
	// design note requires this cache to be per-snapshot, so a fresh Real
	// should be constructed per invocation.
	cache map[uint32]string
}

// New returns a production SystemAPI with an empty per-snapshot uid cache.
func New() *Real {
	return &Real{cache: make(map[uint32]string)}
}

func (r *Real) NowUnix() int64 { return time.Now().Unix() }

// ClockTicks checks the CLK_TCK env var override first (useful for tests
// against fixed fixtures), then falls back to the common default of 100.
// A true sysconf(_SC_CLK_TCK) call would need cgo; the env-override
// fallback keeps this package pure Go.
func (r *Real) ClockTicks() uint64 {
	if v, err := strconv.ParseUint(os.Getenv("CLK_TCK"), 10, 64); err == nil && v > 0 {
		return v
	}
	return 100
}

// PageSizeKiB checks the PAGE_SIZE env var override (bytes) first, then
// falls back to os.Getpagesize().
func (r *Real) PageSizeKiB() uint64 {
	if v, err := strconv.ParseUint(os.Getenv("PAGE_SIZE"), 10, 64); err == nil && v > 0 {
		return v / 1024
	}
	return uint64(os.Getpagesize()) / 1024
}

func (r *Real) UserName(uid uint32) (string, bool) {
	if name, ok := r.cache[uid]; ok {
		return name, true
	}
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return "", false
	}
	r.cache[uid] = u.Username
	return u.Username, true
}

// FallbackUserName builds the "_user_<uid>" sentinel the data model calls
// for when UserName lookup fails.
func FallbackUserName(uid uint32) string {
	return fmt.Sprintf("_user_%d", uid)
}

// ZombieUserName builds the "_zombie_<pid>" sentinel used when a pid
// cannot be resolved during GPU attribution.
func ZombieUserName(pid int) string {
	return fmt.Sprintf("_zombie_%d", pid)
}
