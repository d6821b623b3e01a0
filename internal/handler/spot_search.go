package handler

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-rental/internal/model"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// spotQuery holds the filters and pagination accepted by GET /v1/spots.
type spotQuery struct {
	Location      string // case-insensitive substring
	AvailableOnly bool
	Page          int
	PageSize      int
}

func parseSpotQuery(c echo.Context) spotQuery {
	q := spotQuery{Location: strings.ToLower(strings.TrimSpace(c.QueryParam("location")))}
	q.AvailableOnly, _ = strconv.ParseBool(c.QueryParam("available"))

	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	if q.Page < 1 {
		q.Page = 1
	}
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q
}

// filter returns the requested page of matching spots and the total
// number of matches.  Creation order is preserved.
func (q spotQuery) filter(spots []model.Spot) ([]model.Spot, int) {
	matched := make([]model.Spot, 0, len(spots))
	for _, s := range spots {
		if q.AvailableOnly && !s.IsAvailable {
			continue
		}
		if q.Location != "" && !strings.Contains(strings.ToLower(s.Location), q.Location) {
			continue
		}
		matched = append(matched, s)
	}
	// Compare page numbers before multiplying so a huge page cannot overflow.
	if q.Page-1 > len(matched)/q.PageSize {
		return []model.Spot{}, len(matched)
	}
	start := (q.Page - 1) * q.PageSize
	if start >= len(matched) {
		return []model.Spot{}, len(matched)
	}
	end := min(start+q.PageSize, len(matched))
	return matched[start:end], len(matched)
}
