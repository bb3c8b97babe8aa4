package subprocess

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReal_Run_Success(t *testing.T) {
	r := New()
	out, err := r.Run(context.Background(), "echo", []string{"-n", "hello"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestReal_Run_CouldNotStart(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), "sonar-definitely-not-a-real-binary", nil, time.Second)
	require.Error(t, err)
	assert.True(t, IsCouldNotStart(err))
}

func TestReal_Run_NonZeroExit(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), "false", nil, time.Second)
	require.Error(t, err)
	nz, ok := AsNonZeroExit(err)
	require.True(t, ok)
	assert.NotEqual(t, 0, nz.Code)
}

func TestReal_Run_Timeout(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), "sleep", []string{"5"}, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestFake_RecordsCallsAndReturnsCannedOutput(t *testing.T) {
	f := NewFake().WithOutput("rocm-smi", []byte("card0\n"))
	out, err := f.Run(context.Background(), "rocm-smi", []string{"--showuse"}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "card0\n", string(out))
	require.Len(t, f.Calls, 1)
	assert.Equal(t, "rocm-smi", f.Calls[0].Program)
	assert.Equal(t, []string{"--showuse"}, f.Calls[0].Args)
}

func TestFake_WithError(t *testing.T) {
	f := NewFake().WithError("ps", ErrCouldNotStart)
	_, err := f.Run(context.Background(), "ps", nil, time.Second)
	require.Error(t, err)
	assert.True(t, IsCouldNotStart(err))
}
