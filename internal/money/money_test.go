package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		cents    int64
		currency string
		want     string
	}{
		{12345, "EUR", "€123.45"},
		{0, "EUR", "€0.00"},
		{-50, "usd", "-$0.50"},
		{100000, "GBP", "£1000.00"},
		{7, "CHF", "CHF 0.07"},
		{-199, "", "-1.99"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Format(tc.cents, tc.currency))
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("€123.45")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), got)

	got, err = Parse("$1,234.50")
	require.NoError(t, err)
	assert.Equal(t, int64(123450), got)

	got, err = Parse("-CHF 3")
	require.NoError(t, err)
	assert.Equal(t, int64(-300), got)

	for _, bad := range []string{"", "€", "abc", "€1.234", "--5"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 99, 100, 12345, -12345, 987654321} {
		for _, currency := range []string{"EUR", "USD", "GBP", "SEK", ""} {
			got, err := Parse(Format(v, currency))
			require.NoError(t, err)
			assert.Equal(t, v, got, "%d %s", v, currency)
		}
	}
}
