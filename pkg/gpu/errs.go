package gpu

import "errors"

var (
	// ErrInconsistentCSV means rocm-smi's --csv output had a malformed or
	// duplicated header.
	ErrInconsistentCSV = errors.New("gpu: inconsistent rocm-smi csv output")

	// ErrConciseBlockNotFound means the "Concise Info" text block was
	// absent from bare rocm-smi output.
	ErrConciseBlockNotFound = errors.New("gpu: concise info block not found in rocm-smi output")

	// ErrConciseHeaderUnexpected means the Concise Info header row did not
	// end with the expected VRAM%/GPU% columns.
	ErrConciseHeaderUnexpected = errors.New("gpu: unexpected concise info header in rocm-smi output")

	// ErrPidGpuBlockNotFound means the "GPUs Indexed by PID" block was
	// absent or malformed.
	ErrPidGpuBlockNotFound = errors.New("gpu: gpus-indexed-by-pid block not found in rocm-smi output")
)
