//go:build linux

package sampler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcsonar/sonar/pkg/subprocess"
)

func TestParseBsdtime_S7(t *testing.T) {
	assert.Equal(t, uint64(754), parseBsdtime("12:34"))
	assert.Equal(t, uint64(8405), parseBsdtime("140:05"))
	assert.Equal(t, uint64(0), parseBsdtime("1:02:03"))
	assert.Equal(t, uint64(0), parseBsdtime("garbage"))
}

func TestParsePSLine(t *testing.T) {
	line := "  4018  1000 alice            12.3  4.5 12:34 204800     1  4018 firefox --profile /home/alice"
	proc, ok := parsePSLine(line)
	require.True(t, ok)
	assert.Equal(t, 4018, proc.PID)
	assert.Equal(t, 1, proc.PPID)
	assert.Equal(t, 4018, proc.Pgrp)
	assert.Equal(t, uint32(1000), proc.UID)
	assert.Equal(t, "alice", proc.User)
	assert.InDelta(t, 12.3, proc.CPUPct, 0.0001)
	assert.InDelta(t, 4.5, proc.MemPct, 0.0001)
	assert.Equal(t, uint64(754), proc.CPUTimeSec)
	assert.Equal(t, uint64(204800), proc.MemSizeKiB)
	assert.Equal(t, "firefox --profile /home/alice", proc.Command)
}

func TestParsePSLine_TooFewFields(t *testing.T) {
	_, ok := parsePSLine("4018 1000")
	assert.False(t, ok)
}

func TestPSFallbackSample(t *testing.T) {
	out := "4018 1000 alice 12.3 4.5 12:34 204800 1 4018 firefox\n" +
		"4019 1000 alice 0.0 0.1 0:00 1024 1 4019 sshd: alice@pts/0\n"
	runner := subprocess.NewFake().WithOutput(PSCommand, []byte(out))

	result, err := PSFallbackSample(context.Background(), runner)
	require.NoError(t, err)
	require.Len(t, result.Processes, 2)
	assert.Equal(t, "firefox", result.Processes[4018].Command)
	assert.Equal(t, "sshd: alice@pts/0", result.Processes[4019].Command)

	require.Len(t, runner.Calls, 1)
	assert.Equal(t, PSCommand, runner.Calls[0].Program)
	assert.Equal(t, PSArgs, runner.Calls[0].Args)
	assert.Equal(t, PSTimeout, runner.Calls[0].Timeout)
}

func TestPSFallbackSample_CouldNotStart(t *testing.T) {
	runner := subprocess.NewFake().WithError(PSCommand, subprocess.ErrCouldNotStart)
	_, err := PSFallbackSample(context.Background(), runner)
	require.ErrorIs(t, err, ErrPsUnavailable)
}

func TestPSFallbackSample_NoRows(t *testing.T) {
	runner := subprocess.NewFake().WithOutput(PSCommand, []byte("\n"))
	_, err := PSFallbackSample(context.Background(), runner)
	require.ErrorIs(t, err, ErrPsNoRows)
}
