package histogram

import (
	"testing"
	"time"
)

func TestChooseBucketSizePicksSmallestThatFits(t *testing.T) {
	// A one-day span with a max of 120 buckets fits comfortably inside the
	// 1-hour ladder rung (24 buckets).
	if got := ChooseBucketSize(int64(24*time.Hour/time.Second), 120); got != 3600 {
		t.Fatalf("expected 1-hour buckets for a 1-day span, got %d", got)
	}
}

func TestChooseBucketSizeEscalatesForLargeSpan(t *testing.T) {
	// A 5-year span needs a coarser bucket than 1 hour to stay under 120
	// buckets.
	fiveYears := int64(5 * 365 * 24 * time.Hour / time.Second)
	got := ChooseBucketSize(fiveYears, 120)
	if got < 24*60*60 {
		t.Fatalf("expected at least day-granularity buckets for a 5-year span, got %d", got)
	}
}

func TestChooseBucketSizeDefaultsMaxBuckets(t *testing.T) {
	got := ChooseBucketSize(int64(24*time.Hour/time.Second), 0)
	if got != 3600 {
		t.Fatalf("expected the zero-value maxBuckets to default to 120 (1-hour buckets), got %d", got)
	}
}

func TestBuildEmptyTimestamps(t *testing.T) {
	resp := Build(nil, 0)
	if len(resp.Buckets) != 0 {
		t.Fatalf("expected no buckets for an empty timestamp set, got %d", len(resp.Buckets))
	}
}

func TestBuildSingleTimestampProducesOneBucket(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	resp := Build([]time.Time{now}, 3600)
	if len(resp.Buckets) != 1 {
		t.Fatalf("expected 1 bucket for a single timestamp, got %d", len(resp.Buckets))
	}
	if resp.Buckets[0].Count != 1 {
		t.Fatalf("expected bucket count 1, got %d", resp.Buckets[0].Count)
	}
}

func TestBuildGroupsTimestampsIntoBuckets(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	timestamps := []time.Time{
		base,
		base.Add(10 * time.Minute),
		base.Add(2 * time.Hour),
	}
	resp := Build(timestamps, 3600)
	if resp.BucketS != 3600 {
		t.Fatalf("expected bucketSeconds to reflect the explicit request, got %d", resp.BucketS)
	}

	total := 0
	for _, b := range resp.Buckets {
		total += b.Count
	}
	if total != 3 {
		t.Fatalf("expected every timestamp to land in some bucket, got total %d", total)
	}

	first := resp.Buckets[0]
	if first.Count != 2 {
		t.Fatalf("expected the first hour bucket to hold the two nearby timestamps, got %d", first.Count)
	}
}

func TestBuildAutoPicksBucketSizeWhenUnspecified(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	timestamps := []time.Time{base, base.Add(23 * time.Hour)}
	resp := Build(timestamps, 0)
	if resp.BucketS == 0 {
		t.Fatal("expected Build to auto-select a bucket width when bucketSeconds <= 0")
	}
}
