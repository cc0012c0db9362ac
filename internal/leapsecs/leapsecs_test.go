package leapsecs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinUTCToTAI(t *testing.T) {
	o := Builtin()

	got := o.UTCToTAI(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC))
	want := time.Date(2020, 6, 1, 0, 0, 37, 0, time.UTC)
	assert.True(t, got.Equal(want), "got %v want %v", got, want)
}

func TestBuiltinBeforeFirstEntry(t *testing.T) {
	o := Builtin()
	t0 := time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, o.UTCToTAI(t0).Equal(t0))
}

func TestBuiltinRoundTrip(t *testing.T) {
	o := Builtin()
	utc := time.Date(2018, 3, 15, 12, 0, 0, 0, time.UTC)
	tai := o.UTCToTAI(utc)
	back := o.TAIToUTC(tai)
	assert.True(t, utc.Equal(back), "got %v want %v", back, utc)
}

func TestBuiltinAtLeapBoundary(t *testing.T) {
	o := Builtin()
	before := o.UTCToTAI(time.Date(2016, 12, 31, 23, 59, 59, 0, time.UTC))
	after := o.UTCToTAI(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 36*time.Second, before.Sub(time.Date(2016, 12, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, 37*time.Second, after.Sub(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseIERS(t *testing.T) {
	dat := []byte(`
#  File expires on 28 June 2025
#    MJD        Date        TAI-UTC (s)
    41317.0    1  1 1972       10
    41499.0    1  7 1972       11
    41683.0    1  1 1973       12
`)
	o, err := ParseIERS(dat)
	require.NoError(t, err)

	got := o.UTCToTAI(time.Date(1972, 3, 1, 0, 0, 0, 0, time.UTC))
	want := time.Date(1972, 3, 1, 0, 0, 10, 0, time.UTC)
	assert.True(t, got.Equal(want), "got %v want %v", got, want)
}

func TestParseIERSRejectsMalformedRecord(t *testing.T) {
	_, err := ParseIERS([]byte("not a valid record line"))
	assert.Error(t, err)
}
