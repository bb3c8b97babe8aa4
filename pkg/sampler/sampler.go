//go:build linux

// Package sampler implements the ProcessSampler: the /proc-based
// scan that produces the Process table, total CPU seconds, and per-CPU
// seconds since boot, plus a ps-based fallback for procfs-less
// environments.
package sampler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hpcsonar/sonar/pkg/model"
	"github.com/hpcsonar/sonar/pkg/procfs"
	"github.com/hpcsonar/sonar/pkg/sysapi"
)

// Result is the ProcessSampler's output: the process table keyed by pid,
// total cpu-seconds since boot, and a sparse per-cpu-seconds vector indexed
// by cpu number.
type Result struct {
	Processes  map[int]model.Process
	CPUTotal   uint64
	PerCPUSecs []uint64
}

// statCPUFields are the 1-based-after-the-"cpu"-tag field indices summed to
// approximate "work" time: user, nice, system, irq, softirq.
var statCPUFields = [5]int{1, 2, 3, 6, 7}

// Sample runs the full ProcessSampler algorithm against the given ports.
func Sample(sys sysapi.SystemAPI, fs procfs.Reader, memtotalKiB uint64) (Result, error) {
	ticksPerSec := sys.ClockTicks()
	if ticksPerSec == 0 {
		return Result{}, ErrBadClockTicks
	}

	statBytes, err := fs.ReadFile("stat")
	if err != nil {
		return Result{}, fmt.Errorf("sampler: reading /proc/stat: %w", err)
	}
	cpuTotalSecs, perCPUSecs, bootTime, err := parseProcStat(string(statBytes), ticksPerSec)
	if err != nil {
		return Result{}, err
	}

	pids, err := fs.Pids()
	if err != nil {
		return Result{}, fmt.Errorf("sampler: enumerating /proc: %w", err)
	}

	kibPerPage := sys.PageSizeKiB()
	nowSecs := sys.NowUnix()
	result := make(map[int]model.Process, len(pids))
	ppids := make(map[int]struct{}, len(pids))

	for _, pu := range pids {
		proc, ok, err := sampleOnePid(sys, fs, pu.PID, pu.UID, ticksPerSec, kibPerPage, nowSecs, bootTime, memtotalKiB)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		result[pu.PID] = proc
		ppids[proc.PPID] = struct{}{}
	}

	for pid, p := range result {
		if _, has := ppids[pid]; has {
			p.HasChildren = true
			result[pid] = p
		}
	}

	return Result{Processes: result, CPUTotal: cpuTotalSecs, PerCPUSecs: perCPUSecs}, nil
}

// parseProcStat extracts cpu_total_secs, the sparse per-cpu-seconds vector,
// and boot_time from /proc/stat content.
func parseProcStat(content string, ticksPerSec uint64) (cpuTotalSecs uint64, perCPUSecs []uint64, bootTime uint64, err error) {
	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "cpu"):
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			var sum uint64
			for _, idx := range statCPUFields {
				if idx >= len(fields) {
					return 0, nil, 0, ErrMalformedStat
				}
				v, perr := strconv.ParseUint(fields[idx], 10, 64)
				if perr != nil {
					return 0, nil, 0, ErrMalformedStat
				}
				sum += v
			}
			if strings.HasPrefix(line, "cpu ") {
				cpuTotalSecs = sum / ticksPerSec
			} else {
				cpuNoStr := fields[0][3:]
				cpuNo, perr := strconv.Atoi(cpuNoStr)
				if perr != nil {
					continue // too harsh to error out, per original semantics
				}
				if len(perCPUSecs) < cpuNo+1 {
					grown := make([]uint64, cpuNo+1)
					copy(grown, perCPUSecs)
					perCPUSecs = grown
				}
				perCPUSecs[cpuNo] = sum / ticksPerSec
			}
		case strings.HasPrefix(line, "btime "):
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return 0, nil, 0, ErrNoBootTime
			}
			v, perr := strconv.ParseUint(fields[1], 10, 64)
			if perr != nil {
				return 0, nil, 0, ErrNoBootTime
			}
			bootTime = v
		}
	}
	if bootTime == 0 {
		return 0, nil, 0, ErrNoBootTime
	}
	return cpuTotalSecs, perCPUSecs, bootTime, nil
}

// sampleOnePid reads and computes one process's record. ok is false when
// the pid should be silently dropped (transient vanish, dead state).
func sampleOnePid(sys sysapi.SystemAPI, fs procfs.Reader, pid int, uid uint32, ticksPerSec, kibPerPage uint64, nowSecs int64, bootTime, memtotalKiB uint64) (model.Process, bool, error) {
	statBytes, err := fs.ReadFile(fmt.Sprintf("%d/stat", pid))
	if err != nil {
		return model.Process{}, false, nil // transient: pid vanished
	}
	line := string(statBytes)

	commStart := strings.IndexByte(line, '(')
	commEnd := strings.LastIndexByte(line, ')')
	if commStart < 0 || commEnd < 0 || commEnd < commStart {
		return model.Process{}, false, fmt.Errorf("%w: pid %d: %s", ErrNoComm, pid, line)
	}
	comm := line[commStart+1 : commEnd]
	rest := strings.Fields(strings.TrimSpace(line[commEnd+1:]))

	get := func(idx int) (string, error) {
		if idx >= len(rest) {
			return "", fmt.Errorf("%w: pid %d field %d", ErrShortStatFields, pid, idx)
		}
		return rest[idx], nil
	}

	state, err := get(0)
	if err != nil {
		return model.Process{}, false, err
	}
	if state == "X" {
		return model.Process{}, false, nil
	}
	zombie := state == "Z"
	if zombie {
		comm += " <defunct>"
	}

	parseUint := func(idx int) (uint64, error) {
		s, err := get(idx)
		if err != nil {
			return 0, err
		}
		v, perr := strconv.ParseUint(s, 10, 64)
		if perr != nil {
			return 0, fmt.Errorf("%w: pid %d field %d %q", ErrShortStatFields, pid, idx, s)
		}
		return v, nil
	}
	parseInt := func(idx int) (int, error) {
		v, err := parseUint(idx)
		return int(v), err
	}

	ppid, err := parseInt(1)
	if err != nil {
		return model.Process{}, false, err
	}
	pgrp, err := parseInt(2)
	if err != nil {
		return model.Process{}, false, err
	}
	utimeTicks, err := parseUint(11)
	if err != nil {
		return model.Process{}, false, err
	}
	stimeTicks, err := parseUint(12)
	if err != nil {
		return model.Process{}, false, err
	}
	cutimeTicks, err := parseUint(13)
	if err != nil {
		return model.Process{}, false, err
	}
	cstimeTicks, err := parseUint(14)
	if err != nil {
		return model.Process{}, false, err
	}
	startTimeTicks, err := parseUint(19)
	if err != nil {
		return model.Process{}, false, err
	}

	statmBytes, err := fs.ReadFile(fmt.Sprintf("%d/statm", pid))
	if err != nil {
		return model.Process{}, false, nil // transient: pid vanished
	}
	statmFields := strings.Fields(string(statmBytes))
	if len(statmFields) < 6 {
		return model.Process{}, false, fmt.Errorf("%w: pid %d", ErrMalformedStatm, pid)
	}
	rssPages, perr := strconv.ParseUint(statmFields[1], 10, 64)
	if perr != nil {
		return model.Process{}, false, fmt.Errorf("%w: pid %d", ErrMalformedStatm, pid)
	}
	dataPages, perr := strconv.ParseUint(statmFields[5], 10, 64)
	if perr != nil {
		return model.Process{}, false, fmt.Errorf("%w: pid %d", ErrMalformedStatm, pid)
	}
	rssKiB := rssPages * kibPerPage
	sizeKiB := dataPages * kibPerPage

	rssAnonKiB, found, err := readRssAnon(fs, pid)
	if err != nil {
		return model.Process{}, false, err
	}
	if !found {
		return model.Process{}, false, nil // status file vanished: transient
	}

	nowTicks := float64(nowSecs) * float64(ticksPerSec)
	bootTicks := float64(bootTime) * float64(ticksPerSec)
	realtimeTicks := nowTicks - (bootTicks + float64(startTimeTicks))
	if realtimeTicks < 1.0 {
		realtimeTicks = 1.0
	}

	cpuPct := roundToTenth((float64(utimeTicks) + float64(stimeTicks)) / realtimeTicks)
	bsdtimeTicks := float64(utimeTicks) + float64(stimeTicks) + float64(cutimeTicks) + float64(cstimeTicks)
	cputimeSec := roundToUint(bsdtimeTicks / float64(ticksPerSec))
	memPct := roundToTenth(float64(rssKiB) / float64(memtotalKiB))
	if memPct > 99.9 {
		memPct = 99.9
	}

	userName, ok := sys.UserName(uid)
	if !ok {
		userName = sysapi.FallbackUserName(uid)
	}

	return model.Process{
		PID:         pid,
		PPID:        ppid,
		Pgrp:        pgrp,
		UID:         uid,
		User:        userName,
		CPUPct:      cpuPct,
		MemPct:      memPct,
		CPUTimeSec:  cputimeSec,
		MemSizeKiB:  sizeKiB,
		RSSAnonKiB:  rssAnonKiB,
		Command:     comm,
		HasChildren: false,
	}, true, nil
}

// readRssAnon reads /proc/<pid>/status and extracts the RssAnon field.
// found is false when the file itself vanished (transient race); a file
// that exists but lacks the field yields (0, true, nil).
func readRssAnon(fs procfs.Reader, pid int) (kib uint64, found bool, err error) {
	statusBytes, err := fs.ReadFile(fmt.Sprintf("%d/status", pid))
	if err != nil {
		return 0, false, nil
	}
	for _, line := range strings.Split(string(statusBytes), "\n") {
		if !strings.HasPrefix(line, "RssAnon:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[2] != "kB" {
			return 0, true, fmt.Errorf("%w: pid %d: %s", ErrMalformedRssAnon, pid, line)
		}
		v, perr := strconv.ParseUint(fields[1], 10, 64)
		if perr != nil {
			return 0, true, fmt.Errorf("%w: pid %d: %s", ErrMalformedRssAnon, pid, line)
		}
		return v, true, nil
	}
	return 0, true, nil
}

// MemTotalKiB reads /proc/meminfo and returns MemTotal in KiB.
func MemTotalKiB(fs procfs.Reader) (uint64, error) {
	b, err := fs.ReadFile("meminfo")
	if err != nil {
		return 0, fmt.Errorf("sampler: reading /proc/meminfo: %w", err)
	}
	mem, err := ParseMeminfo(string(b))
	if err != nil {
		return 0, err
	}
	if mem.TotalKiB == 0 {
		return 0, ErrNoMemTotal
	}
	return mem.TotalKiB, nil
}

// ParseMeminfo parses the full /proc/meminfo content into a model.Memory.
func ParseMeminfo(content string) (model.Memory, error) {
	var mem model.Memory
	for _, line := range strings.Split(content, "\n") {
		var target *uint64
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			target = &mem.TotalKiB
		case strings.HasPrefix(line, "MemAvailable:"):
			target = &mem.AvailableKiB
		default:
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[2] != "kB" {
			return model.Memory{}, fmt.Errorf("sampler: unexpected meminfo line: %s", line)
		}
		v, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return model.Memory{}, fmt.Errorf("sampler: unexpected meminfo line: %s", line)
		}
		*target = v
	}
	if mem.TotalKiB == 0 {
		return model.Memory{}, ErrNoMemTotal
	}
	return mem, nil
}
