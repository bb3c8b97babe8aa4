//go:build linux

package sampler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hpcsonar/sonar/pkg/model"
	"github.com/hpcsonar/sonar/pkg/subprocess"
)

// PSCommand is the exact fallback process-enumeration invocation.
// --cumulative and bsdtime ensure cpu time accounted to exited, reaped
// child processes is folded into the parent's reported figure.
const PSCommand = "ps"

// PSArgs are the fixed arguments for PSCommand.
var PSArgs = []string{
	"-e", "--no-header", "--cumulative",
	"-o", "pid,uid,user:22,pcpu,pmem,bsdtime,size,ppid,sess,comm",
}

// PSTimeout is the default wall-clock timeout for the ps fallback, used
// when the caller's context carries no deadline.
const PSTimeout = 2 * time.Second

// PSFallbackSample runs ps and parses its output into a process table
//. Unlike the procfs-based Sample, there is no has_children or
// rssanon_kib data available; those fields are always zero/false.
func PSFallbackSample(ctx context.Context, runner subprocess.Runner) (Result, error) {
	timeout := PSTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	out, err := runner.Run(ctx, PSCommand, PSArgs, timeout)
	if err != nil {
		if subprocess.IsCouldNotStart(err) {
			return Result{}, ErrPsUnavailable
		}
		return Result{}, fmt.Errorf("sampler: ps fallback: %w", err)
	}

	processes := make(map[int]model.Process)
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		proc, ok := parsePSLine(line)
		if !ok {
			continue
		}
		processes[proc.PID] = proc
	}
	if len(processes) == 0 {
		return Result{}, ErrPsNoRows
	}
	return Result{Processes: processes}, nil
}

// parsePSLine parses one line of `ps ... -o pid,uid,user:22,pcpu,pmem,bsdtime,size,ppid,sess,comm`.
// The first nine columns are whitespace-delimited; the tenth (comm) is
// everything from its first character to end of line, since commands may
// themselves contain spaces.
func parsePSLine(line string) (model.Process, bool) {
	starts, fields := tokenizeWithStarts(line, 10)
	if len(fields) < 9 || len(starts) < 10 {
		return model.Process{}, false
	}

	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return model.Process{}, false
	}
	uid64, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return model.Process{}, false
	}
	cpuPct, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return model.Process{}, false
	}
	memPct, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return model.Process{}, false
	}
	sizeKiB, err := strconv.ParseUint(fields[6], 10, 64)
	if err != nil {
		return model.Process{}, false
	}
	ppid, err := strconv.Atoi(fields[7])
	if err != nil {
		return model.Process{}, false
	}
	sess, err := strconv.Atoi(fields[8])
	if err != nil {
		return model.Process{}, false
	}
	command := line[starts[9]:]

	return model.Process{
		PID:        pid,
		PPID:       ppid,
		Pgrp:       sess,
		UID:        uint32(uid64),
		User:       fields[2],
		CPUPct:     cpuPct,
		MemPct:     memPct,
		CPUTimeSec: parseBsdtime(fields[5]),
		MemSizeKiB: sizeKiB,
		Command:    command,
	}, true
}

// parseBsdtime parses ps's "M...M:SS" cumulative-cpu-time format. Any shape
// other than exactly two colon-separated parts (including the H:MM:SS form)
// fails soft to 0.
func parseBsdtime(s string) uint64 {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0
	}
	minutes, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0
	}
	return minutes*60 + seconds
}

// tokenizeWithStarts splits s on whitespace like strings.Fields, but also
// records the byte offset where each of the first maxFields tokens begins,
// so a caller can recover "everything from token N onward" verbatim
// (needed for the free-text comm column). Tokens beyond maxFields-1 are not
// individually split; starts[maxFields-1] marks where the remainder begins.
func tokenizeWithStarts(s string, maxFields int) ([]int, []string) {
	var starts []int
	var fields []string
	inField := false
	fieldStart := 0
	for i := 0; i <= len(s); i++ {
		atEnd := i == len(s)
		isSpace := !atEnd && (s[i] == ' ' || s[i] == '\t')
		if !atEnd && !isSpace {
			if !inField {
				inField = true
				fieldStart = i
				starts = append(starts, i)
				if len(starts) == maxFields {
					break
				}
			}
			continue
		}
		if inField {
			fields = append(fields, s[fieldStart:i])
			inField = false
		}
	}
	return starts, fields
}
