package pricingsvc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatter_USD(t *testing.T) {
	f, err := NewFormatter("en-US")
	require.NoError(t, err)

	got, err := f.Format(123450, "USD")
	require.NoError(t, err)
	require.Equal(t, "$1,234.50", got)

	got, err = f.Format(-500, "USD")
	require.NoError(t, err)
	require.Equal(t, "-$5.00", got)
}

func TestFormatter_ZeroDecimalCurrency(t *testing.T) {
	scale, err := Scale("JPY")
	require.NoError(t, err)
	require.Equal(t, 0, scale)

	f, err := NewFormatter("en-US")
	require.NoError(t, err)
	got, err := f.Format(1500, "JPY")
	require.NoError(t, err)
	require.Contains(t, got, "1,500")
	require.NotContains(t, got, ".")
}

func TestFormatter_Errors(t *testing.T) {
	_, err := NewFormatter("!!")
	require.Error(t, err)

	f, err := NewFormatter("en-US")
	require.NoError(t, err)
	_, err = f.Format(1, "NOPE")
	require.Error(t, err)
}
