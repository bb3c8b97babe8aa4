package subprocess

import "errors"

var (
	// ErrCouldNotStart means the program itself could not be launched
	// (not found on PATH, permission denied, exec failure before the
	// process existed at all).
	ErrCouldNotStart = errors.New("subprocess: could not start command")

	// ErrTimeout means the command was still running when its timeout
	// elapsed and was killed.
	ErrTimeout = errors.New("subprocess: command timed out")

	// ErrIO means reading the command's output failed after it started.
	ErrIO = errors.New("subprocess: i/o error reading command output")
)

// NonZeroExit means the command ran to completion but exited with a
// non-zero status. Stdout captured up to that point is preserved, since
// some callers (rocm-smi in particular) write partial, still-useful
// output before a final non-fatal exit code.
type NonZeroExit struct {
	Code   int
	Stdout []byte
}

func (e *NonZeroExit) Error() string {
	return "subprocess: command exited non-zero"
}

// IsCouldNotStart reports whether err (or anything it wraps) is
// ErrCouldNotStart.
func IsCouldNotStart(err error) bool {
	return errors.Is(err, ErrCouldNotStart)
}

// IsTimeout reports whether err (or anything it wraps) is ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// AsNonZeroExit reports whether err is a *NonZeroExit, returning it if so.
func AsNonZeroExit(err error) (*NonZeroExit, bool) {
	var nz *NonZeroExit
	ok := errors.As(err, &nz)
	return nz, ok
}
