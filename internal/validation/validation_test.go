package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDNI(t *testing.T) {
	require.NoError(t, DNI("12345678"))
	require.Error(t, DNI(""))
	require.Error(t, DNI("1234567"))
	require.Error(t, DNI("123456789"))
	require.Error(t, DNI("1234567a"))
}

func TestEmail(t *testing.T) {
	require.NoError(t, Email("trader@qoricash.pe"))
	require.Error(t, Email(""))
	require.Error(t, Email("not-an-email"))
	require.Error(t, Email("missing@tld"))
}

func TestPhone(t *testing.T) {
	require.NoError(t, Phone(""), "phone is optional")
	require.NoError(t, Phone("987654321"))
	require.NoError(t, Phone("4567890"))
	require.NoError(t, Phone("987-654-321"))
	require.Error(t, Phone("12345"))
	require.Error(t, Phone("98765432a"))
}

func TestPassword(t *testing.T) {
	require.NoError(t, Password("secreta1"))
	require.Error(t, Password(""))
	require.Error(t, Password("short1"))
	require.Error(t, Password("nodigitshere"))
}

func TestAmount(t *testing.T) {
	require.NoError(t, Amount(decimal.NewFromInt(1000)))
	require.Error(t, Amount(decimal.Zero))
	require.Error(t, Amount(decimal.NewFromInt(-5)))
}

func TestExchangeRate(t *testing.T) {
	min := decimal.NewFromFloat(2.5)
	max := decimal.NewFromFloat(5.0)

	require.NoError(t, ExchangeRate(decimal.NewFromFloat(3.75), min, max))
	require.NoError(t, ExchangeRate(min, min, max), "band is inclusive")
	require.NoError(t, ExchangeRate(max, min, max), "band is inclusive")
	require.Error(t, ExchangeRate(decimal.NewFromFloat(2.49), min, max))
	require.Error(t, ExchangeRate(decimal.NewFromFloat(5.01), min, max))
	require.Error(t, ExchangeRate(decimal.Zero, min, max))
}
