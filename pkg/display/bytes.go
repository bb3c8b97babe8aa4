package display

import "github.com/dustin/go-humanize"

// Bytes is a uint64 wrapper representing a size in bytes, used only for the
// CLI's human-readable console summary. Snapshot fields (mem_size_kib,
// mem_total_kib, ...) are always raw KiB integers and never pass through here.
type Bytes uint64

// Humanized returns a human-readable string with automatic binary unit
// (B, KiB, MiB, GiB, ...).
func (b Bytes) Humanized() string {
	return humanize.IBytes(uint64(b))
}

// KB returns the number of kilobytes (1024 base).
func (b Bytes) KB() float64 { return float64(b) / 1024 }

// MB returns the number of megabytes (1024 base).
func (b Bytes) MB() float64 { return float64(b) / (1024 * 1024) }

// GB returns the number of gigabytes (1024 base).
func (b Bytes) GB() float64 { return float64(b) / (1024 * 1024 * 1024) }
