// Package histogram builds the per-day activity histogram served by
// GET /stats (spec §6.1). Bucket width auto-scales to the observed span so
// a one-day history and a five-year one both render a sane bucket count.
package histogram

import "time"

// Bucket is one time-bucketed count.
type Bucket struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// Totals summarizes the index for GET /stats.
type Totals struct {
	EntryCount  int            `json:"entryCount"`
	TotalBytes  int64          `json:"totalBytes"`
	ByKind      map[string]int `json:"byKind"`
	OldestEntry *time.Time     `json:"oldestEntry,omitempty"`
	NewestEntry *time.Time     `json:"newestEntry,omitempty"`
}

// Response is the full GET /stats payload.
type Response struct {
	Totals  Totals   `json:"totals"`
	Buckets []Bucket `json:"buckets"`
	BucketS int      `json:"bucketSeconds"`
}

// allowedBucketSeconds mirrors the coarse-to-fine granularities a calendar
// activity chart actually uses; picking from a fixed ladder keeps bucket
// boundaries aligned to human-meaningful units instead of an arbitrary
// span/maxBuckets quotient.
var allowedBucketSeconds = []int{
	60 * 60,          // 1 hour
	6 * 60 * 60,      // 6 hours
	24 * 60 * 60,     // 1 day
	7 * 24 * 60 * 60, // 1 week
	30 * 24 * 60 * 60,
	365 * 24 * 60 * 60,
}

// ChooseBucketSize picks the smallest bucket width from the ladder that
// keeps the bucket count at or below maxBuckets over spanSeconds.
func ChooseBucketSize(spanSeconds int64, maxBuckets int) int {
	if maxBuckets <= 0 {
		maxBuckets = 120
	}
	if spanSeconds < 1 {
		spanSeconds = 1
	}
	for _, s := range allowedBucketSeconds {
		buckets := (spanSeconds + int64(s) - 1) / int64(s)
		if buckets <= int64(maxBuckets) {
			return s
		}
	}
	return allowedBucketSeconds[len(allowedBucketSeconds)-1]
}

// Build buckets a set of timestamps (entry LastSeen values) into a
// Response. Bucket width is chosen automatically from the observed span
// unless bucketSeconds is positive.
func Build(timestamps []time.Time, bucketSeconds int) Response {
	if len(timestamps) == 0 {
		return Response{Buckets: []Bucket{}}
	}

	minT, maxT := timestamps[0], timestamps[0]
	for _, t := range timestamps[1:] {
		if t.Before(minT) {
			minT = t
		}
		if t.After(maxT) {
			maxT = t
		}
	}

	if bucketSeconds <= 0 {
		bucketSeconds = ChooseBucketSize(int64(maxT.Sub(minT).Seconds())+1, 120)
	}
	width := time.Duration(bucketSeconds) * time.Second

	counts := make(map[int64]int)
	start := minT.Truncate(width)
	for _, t := range timestamps {
		b := t.Truncate(width).Unix()
		counts[b]++
	}

	end := maxT.Truncate(width)
	buckets := make([]Bucket, 0, int(end.Sub(start)/width)+1)
	for ts := start; !ts.After(end); ts = ts.Add(width) {
		buckets = append(buckets, Bucket{Start: ts, Count: counts[ts.Unix()]})
	}

	return Response{Buckets: buckets, BucketS: bucketSeconds}
}
