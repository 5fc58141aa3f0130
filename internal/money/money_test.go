package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Cents{
		"0":       0,
		"1":       100,
		"12.34":   1234,
		"12.3":    1230,
		"0.05":    5,
		".50":     50,
		"500.00":  50000,
		" 40.00 ": 4000,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "-1", "1.234", "abc", "1,50"} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "12.34", Cents(1234).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-3.00", Cents(-300).String())
	assert.Equal(t, "0.00", Cents(0).String())
}
