package resolve

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveCore12(t *testing.T) {
	tests := []struct {
		in   string
		tag  string
		want interface{}
	}{
		{"", NullTag, nil},
		{"~", NullTag, nil},
		{"null", NullTag, nil},
		{"Null", NullTag, nil},
		{"true", BoolTag, true},
		{"False", BoolTag, false},
		{"10", IntTag, int64(10)},
		{"-10", IntTag, int64(-10)},
		{"0b1010", IntTag, int64(10)},
		{"0o777", IntTag, int64(511)},
		{"0x1F", IntTag, int64(31)},
		{"1_000", IntTag, int64(1000)},
		{"1.5", FloatTag, 1.5},
		{"-2e3", FloatTag, -2000.0},
		{".5", FloatTag, 0.5},
		{".inf", FloatTag, math.Inf(1)},
		{"-.inf", FloatTag, math.Inf(-1)},
		{"<<", MergeTag, "<<"},
		{"hello", StrTag, "hello"},
		// The 1.1 bool zoo stays strings under 1.2 rules.
		{"yes", StrTag, "yes"},
		{"no", StrTag, "no"},
		{"on", StrTag, "on"},
		{"off", StrTag, "off"},
		{"y", StrTag, "y"},
		// 1.1-style octals still decode by default, as strconv's
		// base-0 parsing treats the leading zero as octal.
		{"0777", IntTag, int64(511)},
	}
	for _, tt := range tests {
		rtag, out, err := Resolve(Core12, "", tt.in)
		require.NoError(t, err, "input %q", tt.in)
		require.Equal(t, tt.tag, rtag, "input %q", tt.in)
		if f, ok := tt.want.(float64); ok && math.IsNaN(f) {
			require.True(t, math.IsNaN(out.(float64)))
			continue
		}
		require.Equal(t, tt.want, out, "input %q", tt.in)
	}
}

func TestResolveLegacy11(t *testing.T) {
	tests := []struct {
		in   string
		tag  string
		want interface{}
	}{
		{"yes", BoolTag, true},
		{"Yes", BoolTag, true},
		{"no", BoolTag, false},
		{"on", BoolTag, true},
		{"off", BoolTag, false},
		{"y", BoolTag, true},
		{"N", BoolTag, false},
		{"0777", IntTag, int64(511)},
		{"-0777", IntTag, int64(-511)},
		{"10", IntTag, int64(10)},
		{"hello", StrTag, "hello"},
	}
	for _, tt := range tests {
		rtag, out, err := Resolve(Legacy11, "", tt.in)
		require.NoError(t, err, "input %q", tt.in)
		require.Equal(t, tt.tag, rtag, "input %q", tt.in)
		require.Equal(t, tt.want, out, "input %q", tt.in)
	}
}

func TestResolveNaN(t *testing.T) {
	rtag, out, err := Resolve(Core12, "", ".nan")
	require.NoError(t, err)
	require.Equal(t, FloatTag, rtag)
	require.True(t, math.IsNaN(out.(float64)))
}

func TestResolveExplicitTag(t *testing.T) {
	rtag, out, err := Resolve(Core12, StrTag, "10")
	require.NoError(t, err)
	require.Equal(t, StrTag, rtag)
	require.Equal(t, "10", out)

	rtag, out, err = Resolve(Core12, IntTag, "10")
	require.NoError(t, err)
	require.Equal(t, IntTag, rtag)
	require.Equal(t, int64(10), out)

	// Int text under a float tag widens.
	rtag, out, err = Resolve(Core12, FloatTag, "10")
	require.NoError(t, err)
	require.Equal(t, FloatTag, rtag)
	require.Equal(t, 10.0, out)

	// Non-numeric text under an int tag fails.
	_, _, err = Resolve(Core12, IntTag, "hello")
	require.Error(t, err)
}

func TestResolveTimestamp(t *testing.T) {
	rtag, out, err := Resolve(Core12, "", "2015-02-24T18:19:39Z")
	require.NoError(t, err)
	require.Equal(t, TimestampTag, rtag)
	ts, ok := out.(time.Time)
	require.True(t, ok)
	require.Equal(t, 2015, ts.Year())
}

func TestResolveLargeNumbers(t *testing.T) {
	rtag, out, err := Resolve(Core12, "", "9223372036854775807")
	require.NoError(t, err)
	require.Equal(t, IntTag, rtag)
	require.Equal(t, int64(math.MaxInt64), out)

	rtag, out, err = Resolve(Core12, "", "18446744073709551615")
	require.NoError(t, err)
	require.Equal(t, IntTag, rtag)
	require.Equal(t, uint64(math.MaxUint64), out)
}

func TestShortLongTags(t *testing.T) {
	require.Equal(t, "!!str", ShortTag("tag:yaml.org,2002:str"))
	require.Equal(t, "tag:yaml.org,2002:str", LongTag("!!str"))
	require.Equal(t, "!custom", ShortTag("!custom"))
	require.Equal(t, "!custom", LongTag("!custom"))
}
