// Package model holds the snapshot-scoped data types shared by every
// sampling and attribution component: processes, GPU cards and per-process
// GPU usage, CPU topology, and system memory. Nothing in this package reads
// from the outside world; it is pure data.
package model

// ZombieUID is the sentinel uid assigned when a zombie process's owning uid
// cannot be resolved through the normal /proc directory-owner lookup.
const ZombieUID = ^uint32(0)

// Process describes one sampled OS process.
type Process struct {
	PID         int
	PPID        int
	Pgrp        int
	UID         uint32
	User        string
	CPUPct      float64
	MemPct      float64
	CPUTimeSec  uint64
	MemSizeKiB  uint64
	RSSAnonKiB  uint64
	Command     string
	HasChildren bool
}

// Card describes one GPU device as reported by a vendor probe.
type Card struct {
	Model       string
	MemTotalKiB uint64
	MemUsedKiB  uint64

	// VendorID / DeviceID are optional hex PCI identifiers populated only
	// by the enrichment lookup (pkg/gpu's pcidb integration). Empty when
	// unresolved; never required for a Card to be valid.
	VendorID string
	DeviceID string
}

// GpuProcess is one (pid, device) attribution record.
type GpuProcess struct {
	// Device is the card index; DeviceValid is false when the device is unknown
	// ("any / unknown" per the data model).
	Device      int
	DeviceValid bool

	PID        int
	UID        uint32
	User       string
	GPUPct     float64
	MemPct     float64
	MemSizeKiB uint64
	Command    string
}

// CoreInfo describes a single logical CPU core.
type CoreInfo struct {
	ModelName     string
	LogicalIndex  int
	PhysicalIndex int
}

// CpuInfo is the parsed CPU topology.
type CpuInfo struct {
	Sockets        int
	CoresPerSocket int
	ThreadsPerCore int
	Cores          []CoreInfo
}

// Memory is the parsed system memory summary.
type Memory struct {
	TotalKiB     uint64
	AvailableKiB uint64
}
