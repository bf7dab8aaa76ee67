package domain

import (
	"testing"
	"time"
)

func TestTierDailyLimits(t *testing.T) {
	cases := []struct {
		tier Tier
		want int
	}{
		{TierFree, 25},
		{TierBasic, 100},
		{TierPro, 500},
		{TierUnlimited, UnlimitedQueries},
		{TierEnterprise, UnlimitedQueries},
		{Tier("bogus"), 25}, // unknown tiers are metered like free
	}
	for _, tc := range cases {
		if got := tc.tier.DailyLimit(); got != tc.want {
			t.Errorf("DailyLimit(%q) = %d, want %d", tc.tier, got, tc.want)
		}
	}
}

func TestTierValid(t *testing.T) {
	for _, tier := range []Tier{TierFree, TierBasic, TierPro, TierUnlimited, TierEnterprise} {
		if !tier.Valid() {
			t.Errorf("%q should be valid", tier)
		}
	}
	for _, tier := range []Tier{"", "gold", "FREE"} {
		if tier.Valid() {
			t.Errorf("%q should be invalid", tier)
		}
	}
}

func TestUsageDate_UTCNormalized(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2026, 8, 28, 23, 30, 0, 0, loc)
	if got := UsageDate(ts); got != "2026-08-29" {
		t.Fatalf("UsageDate = %q, want 2026-08-29", got)
	}
}

func TestChunkMetadata(t *testing.T) {
	c := DocumentChunk{Regulation: "far", Section: "52.212-1", Title: "Instructions to Offerors"}
	m := c.Metadata()
	if m.Regulation != "far" || m.Section != "52.212-1" || m.Title != "Instructions to Offerors" {
		t.Fatalf("unexpected metadata: %+v", m)
	}
}
