package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/beatstore/internal/tier"
)

func testCatalog(t *testing.T) *tier.Catalog {
	t.Helper()
	c, err := tier.NewCatalog([]tier.Tier{
		{ID: "wav5", Benefits: tier.Benefits{BeatsPerMonth: 5, LicenseType: tier.LicenseWAVLease}},
		{ID: "zero", Benefits: tier.Benefits{BeatsPerMonth: 0, LicenseType: tier.LicenseMP3Lease}},
		{ID: "all", Benefits: tier.Benefits{BeatsPerMonth: tier.UnlimitedBeats, LicenseType: tier.LicensePremiumUnlimited}},
	})
	require.NoError(t, err)
	return c
}

func TestEvaluator_Unlimited(t *testing.T) {
	e := New(testCatalog(t))
	for _, used := range []int{0, 1, 5, 500, 1 << 20} {
		assert.True(t, e.CanDownload("all", used), "used=%d", used)
		assert.True(t, e.Remaining("all", used).IsUnlimited(), "used=%d", used)
	}
}

func TestEvaluator_Finite(t *testing.T) {
	e := New(testCatalog(t))

	tests := []struct {
		used int
		want int
	}{
		{used: 0, want: 5},
		{used: 3, want: 2},
		{used: 4, want: 1},
		{used: 5, want: 0},
		{used: 9, want: 0},
	}
	for _, tt := range tests {
		rem := e.Remaining("wav5", tt.used)
		n, ok := rem.Count()
		require.True(t, ok)
		assert.Equal(t, tt.want, n, "used=%d", tt.used)
		assert.Equal(t, n > 0, e.CanDownload("wav5", tt.used), "used=%d", tt.used)
	}
}

func TestEvaluator_ZeroQuotaTier(t *testing.T) {
	e := New(testCatalog(t))
	assert.False(t, e.CanDownload("zero", 0))
	assert.Equal(t, tier.Finite(0), e.Limit("zero"))
}

func TestEvaluator_UnknownTierFailsClosed(t *testing.T) {
	e := New(testCatalog(t))
	assert.False(t, e.CanDownload("missing", 0))
	assert.Equal(t, tier.Finite(0), e.Remaining("missing", 0))
	assert.Equal(t, tier.Finite(0), e.Limit(""))
}
