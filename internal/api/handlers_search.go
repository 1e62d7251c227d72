package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Explosion-Scratch/clippy-sub000/internal/apperr"
	"github.com/Explosion-Scratch/clippy-sub000/internal/index"
	"github.com/Explosion-Scratch/clippy-sub000/internal/timeparse"
	"github.com/Explosion-Scratch/clippy-sub000/internal/wire"
)

// handleSearch implements GET /search (spec §4.4, §6.1): empty query with
// sort=relevance is a 400 invalid_query.
func (s *Server) handleSearch(c echo.Context) error {
	q := parseListQuery(c, 50)
	q.QueryText = c.QueryParam("query")
	q.Regex = c.QueryParam("regex") == "true" || c.QueryParam("regex") == "1"

	if q.QueryText == "" && q.Sort == index.SortRelevance {
		return apperr.New(apperr.KindValidation, "empty query with sort=relevance")
	}

	now := time.Now()
	if from, ok := timeparse.Parse(c.QueryParam("from"), now); ok {
		q.From = from
	}
	if to, ok := timeparse.Parse(c.QueryParam("to"), now); ok {
		q.To = to
	}

	recs, total, err := s.index.Run(q)
	if err != nil {
		return err
	}
	items := make([]wire.Item, 0, len(recs))
	for _, r := range recs {
		items = append(items, wire.FromRecord(r))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "total": total})
}
