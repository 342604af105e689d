package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viagemapp/tripledger/internal/domain"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want domain.Money
	}{
		{"12.34", 1234},
		{"12,34", 1234},
		{"100", 10000},
		{"0.5", 50},
		{".99", 99},
		{"12.345", 1235}, // half-up on third digit
		{"12.344", 1234},
		{"0", 0},
		{" 40.00 ", 4000},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := domain.ParseMoney(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestParseMoney_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "-5.00", "+5.00", "1.2.3", "12.3x", "1e3"} {
		t.Run(in, func(t *testing.T) {
			_, err := domain.ParseMoney(in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "12.34", domain.Money(1234).String())
	assert.Equal(t, "0.05", domain.Money(5).String())
	assert.Equal(t, "0.00", domain.Money(0).String())
	assert.Equal(t, "100.00", domain.Money(10000).String())
	assert.Equal(t, "-3.50", domain.Money(-350).String())
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	out, err := json.Marshal(domain.Money(4099))
	require.NoError(t, err)
	assert.Equal(t, `"40.99"`, string(out))

	var m domain.Money
	require.NoError(t, json.Unmarshal([]byte(`"40.99"`), &m))
	assert.Equal(t, domain.Money(4099), m)
}

func TestMoney_ExactBoundary(t *testing.T) {
	// 0.10 added ten times must be exactly 1.00 — the whole reason amounts
	// are integer cents instead of float64.
	var sum domain.Money
	for i := 0; i < 10; i++ {
		sum += domain.Money(10)
	}
	assert.Equal(t, domain.Money(100), sum)
	assert.Equal(t, domain.StatusSettled, domain.StatusFor(sum, 100))
}
