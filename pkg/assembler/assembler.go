//go:build linux

// Package assembler implements the Snapshot Assembler: it
// sequences the sampler, cpu-topology parser, GPU probes, and job
// manager, then builds the stable-tagged Object tree an encoder turns
// into bytes.
package assembler

import (
	"sort"

	"github.com/hpcsonar/sonar/pkg/gpu"
	"github.com/hpcsonar/sonar/pkg/jobs"
	"github.com/hpcsonar/sonar/pkg/model"
	"github.com/hpcsonar/sonar/pkg/output"
	"github.com/hpcsonar/sonar/pkg/sampler"
)

// GpuView is one firing probe's contribution: its manufacturer name,
// card inventory, per-process attribution, and (optionally) card state.
type GpuView struct {
	Manufacturer string
	Cards        []model.Card
	Processes    []model.GpuProcess
	CardState    []gpu.CardState
}

// Input bundles everything the Assembler needs to build one snapshot.
// Every field is already-gathered data; the Assembler does no I/O of
// its own beyond the JobManager lookups (the Slurm adapter reads
// /proc/<pid>/cgroup; no adapter spawns a subprocess).
type Input struct {
	Timestamp     string
	Memory        model.Memory
	CPUInfo       model.CpuInfo
	Sample        sampler.Result
	GPUs          []GpuView
	JobManager    jobs.Manager
	IncludeCardState bool
}

// Assemble builds the top-level snapshot Object. Tags are stable
// across invocations: "timestamp", "memory", "cpu_info",
// "cpu_total_secs", "per_cpu_secs", "processes", and, only when at
// least one GPU probe fired, "gpus".
func Assemble(in Input) *output.Object {
	root := output.NewObject()
	root.PushString("timestamp", in.Timestamp)
	root.PushObject("memory", buildMemory(in.Memory))
	root.PushObject("cpu_info", buildCPUInfo(in.CPUInfo))
	root.PushUint("cpu_total_secs", in.Sample.CPUTotal)
	root.PushArray("per_cpu_secs", buildPerCPUSecs(in.Sample.PerCPUSecs))
	root.PushArray("processes", buildProcesses(in.Sample.Processes, in.JobManager))
	if len(in.GPUs) > 0 {
		root.PushArray("gpus", buildGPUs(in.GPUs, in.IncludeCardState))
	}
	return root
}

func buildMemory(m model.Memory) *output.Object {
	o := output.NewObject()
	o.PushUint("total_kib", m.TotalKiB)
	o.PushUint("available_kib", m.AvailableKiB)
	return o
}

func buildCPUInfo(c model.CpuInfo) *output.Object {
	o := output.NewObject()
	o.PushUint("sockets", uint64(c.Sockets))
	o.PushUint("cores_per_socket", uint64(c.CoresPerSocket))
	o.PushUint("threads_per_core", uint64(c.ThreadsPerCore))
	cores := output.NewArray()
	for _, core := range c.Cores {
		co := output.NewObject()
		co.PushString("model_name", core.ModelName)
		co.PushUint("logical_index", uint64(core.LogicalIndex))
		co.PushUint("physical_index", uint64(core.PhysicalIndex))
		cores.PushObject(co)
	}
	o.PushArray("cores", cores)
	return o
}

// buildPerCPUSecs packs the per-cpu-seconds vector as base-45 when
// nonempty (all-zero included); an empty vector is encoded as a plain
// empty array instead, since base-45 packing requires at least one
// element.
func buildPerCPUSecs(secs []uint64) *output.Array {
	a := output.NewArray()
	for _, s := range secs {
		a.PushUint(s)
	}
	if a.Len() > 0 {
		a.SetEncodeNonemptyBase45()
	}
	return a
}

func buildProcesses(procs map[int]model.Process, jm jobs.Manager) *output.Array {
	pids := make([]int, 0, len(procs))
	for pid := range procs {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	a := output.NewArray()
	for _, pid := range pids {
		p := procs[pid]
		jobID := 0
		if jm != nil {
			jobID = jm.JobIDFromPID(pid, procs)
		}
		o := output.NewObject()
		o.PushUint("pid", uint64(p.PID))
		o.PushUint("ppid", uint64(p.PPID))
		o.PushUint("pgrp", uint64(p.Pgrp))
		o.PushUint("uid", uint64(p.UID))
		o.PushString("user", p.User)
		o.PushFloat("cpu_pct", p.CPUPct)
		o.PushFloat("mem_pct", p.MemPct)
		o.PushUint("cputime_sec", p.CPUTimeSec)
		o.PushUint("mem_size_kib", p.MemSizeKiB)
		o.PushUint("rssanon_kib", p.RSSAnonKiB)
		o.PushString("command", p.Command)
		o.Push("has_children", boolValue(p.HasChildren))
		o.PushUint("job_id", uint64(jobID))
		a.PushObject(o)
	}
	return a
}

func boolValue(b bool) output.Value {
	if b {
		return output.Uint(1)
	}
	return output.Uint(0)
}

func buildGPUs(views []GpuView, includeCardState bool) *output.Array {
	a := output.NewArray()
	for _, v := range views {
		o := output.NewObject()
		o.PushString("manufacturer", v.Manufacturer)
		o.PushArray("cards", buildCards(v.Cards))
		o.PushArray("gpu_processes", buildGpuProcesses(v.Processes))
		if includeCardState {
			o.PushArray("card_state", buildCardState(v.CardState))
		}
		a.PushObject(o)
	}
	return a
}

func buildCards(cards []model.Card) *output.Array {
	a := output.NewArray()
	for _, c := range cards {
		co := output.NewObject()
		co.PushString("model", c.Model)
		co.PushUint("mem_total_kib", c.MemTotalKiB)
		co.PushUint("mem_used_kib", c.MemUsedKiB)
		if c.VendorID != "" {
			co.PushString("vendor_id", c.VendorID)
		}
		if c.DeviceID != "" {
			co.PushString("device_id", c.DeviceID)
		}
		a.PushObject(co)
	}
	return a
}

func buildGpuProcesses(procs []model.GpuProcess) *output.Array {
	a := output.NewArray()
	for _, p := range procs {
		o := output.NewObject()
		if p.DeviceValid {
			o.PushUint("device", uint64(p.Device))
		}
		o.PushUint("pid", uint64(p.PID))
		o.PushUint("uid", uint64(p.UID))
		o.PushString("user", p.User)
		o.PushFloat("gpu_pct", p.GPUPct)
		o.PushFloat("mem_pct", p.MemPct)
		o.PushUint("mem_size_kib", p.MemSizeKiB)
		o.PushString("command", p.Command)
		a.PushObject(o)
	}
	return a
}

func buildCardState(states []gpu.CardState) *output.Array {
	a := output.NewArray()
	for _, s := range states {
		o := output.NewObject()
		o.PushUint("device", uint64(s.Device))
		o.PushString("state", s.State)
		a.PushObject(o)
	}
	return a
}
