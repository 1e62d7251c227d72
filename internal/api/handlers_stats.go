package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Explosion-Scratch/clippy-sub000/internal/histogram"
	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
)

// handleStats implements GET /stats (spec §6.1): totals and a per-day
// activity histogram over last_seen.
func (s *Server) handleStats(c echo.Context) error {
	recs, total, err := s.index.Run(index.Query{})
	if err != nil {
		return err
	}

	totals := histogram.Totals{EntryCount: total, ByKind: map[string]int{}}
	lastSeens := make([]time.Time, 0, len(recs))
	for _, r := range recs {
		totals.TotalBytes += r.ByteSize
		totals.ByKind[string(r.Kind)]++
		lastSeens = append(lastSeens, r.LastSeen)
		if totals.OldestEntry == nil || r.FirstSeen.Before(*totals.OldestEntry) {
			first := r.FirstSeen
			totals.OldestEntry = &first
		}
		if totals.NewestEntry == nil || r.LastSeen.After(*totals.NewestEntry) {
			last := r.LastSeen
			totals.NewestEntry = &last
		}
	}

	bucketSeconds := 0
	if bs := c.QueryParam("bucketSeconds"); bs != "" {
		if n, err := strconv.Atoi(bs); err == nil {
			bucketSeconds = n
		}
	}

	resp := histogram.Build(lastSeens, bucketSeconds)
	resp.Totals = totals
	return c.JSON(http.StatusOK, resp)
}
