package timestamp

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var iso8601Re = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[+-]\d{2}:\d{2}$`)

func TestNowISO8601_Shape(t *testing.T) {
	now := time.Date(2024, time.October, 31, 11, 17, 5, 0, time.UTC)
	s := NowISO8601(now)
	assert.Regexp(t, iso8601Re, s)
}

func TestParseDateAndTimeNoTZO(t *testing.T) {
	tm, err := ParseDateAndTimeNoTZO("2024-10-31T11:17")
	require.NoError(t, err)
	assert.Equal(t, 2024, tm.Year())
	assert.Equal(t, time.October, tm.Month())
	assert.Equal(t, 31, tm.Day())
	assert.Equal(t, 11, tm.Hour())
	assert.Equal(t, 17, tm.Minute())

	tm, err = ParseDateAndTimeNoTZO("2022-07-01T23:59:14")
	require.NoError(t, err)
	assert.Equal(t, 2022, tm.Year())
	assert.Equal(t, time.July, tm.Month())
	assert.Equal(t, 1, tm.Day())
	assert.Equal(t, 23, tm.Hour())
	assert.Equal(t, 59, tm.Minute())
	assert.Equal(t, 14, tm.Second())
}

func TestParseDateAndTimeNoTZO_OutOfRange(t *testing.T) {
	_, err := ParseDateAndTimeNoTZO("1969-07-01T23:59:14")
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = ParseDateAndTimeNoTZO("2105-07-01T23:59:14")
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestParseDateAndTimeNoTZO_Malformed(t *testing.T) {
	for _, s := range []string{
		"202207-01T23:59:14",
		"2022-07-01T23:5914",
		"2022-07-01T2359",
		"2022-07-01T23:59+03:30",
	} {
		_, err := ParseDateAndTimeNoTZO(s)
		assert.Error(t, err, s)
	}
}
