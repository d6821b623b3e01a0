package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-rental/internal/middleware"
	"github.com/iliyamo/parking-rental/internal/model"
	"github.com/iliyamo/parking-rental/internal/registry"
)

// SpotHandler exposes the registry operations over HTTP.
type SpotHandler struct {
	Reg *registry.Registry
}

func NewSpotHandler(reg *registry.Registry) *SpotHandler {
	if reg == nil {
		panic("nil registry passed to NewSpotHandler")
	}
	return &SpotHandler{Reg: reg}
}

type addSpotReq struct {
	ID           uint64 `json:"id"`
	Location     string `json:"location"`
	PricePerHour uint64 `json:"price_per_hour"`
}

type reserveReq struct {
	Payment uint64 `json:"payment"`
}

type spotResp struct {
	ID           uint64    `json:"id"`
	Location     string    `json:"location"`
	PricePerHour uint64    `json:"price_per_hour"`
	IsAvailable  bool      `json:"is_available"`
	Renter       string    `json:"renter"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toSpotResp(s model.Spot) spotResp {
	return spotResp{
		ID:           s.ID,
		Location:     s.Location,
		PricePerHour: s.PricePerHour,
		IsAvailable:  s.IsAvailable,
		Renter:       s.Renter.String(),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// AddSpot handles POST /v1/spots.
func (h *SpotHandler) AddSpot(c echo.Context) error {
	var req addSpotReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	spot, err := h.Reg.AddSpot(c.Request().Context(), middleware.Caller(c), req.ID, req.Location, req.PricePerHour)
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(http.StatusCreated, toSpotResp(spot))
}

// Reserve handles POST /v1/spots/:id/reserve.
func (h *SpotHandler) Reserve(c echo.Context) error {
	id, ok := spotID(c)
	if !ok {
		return badRequest(c, "invalid spot id")
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	spot, err := h.Reg.Reserve(c.Request().Context(), middleware.Caller(c), id, req.Payment)
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(http.StatusOK, toSpotResp(spot))
}

// Release handles POST /v1/spots/:id/release.
func (h *SpotHandler) Release(c echo.Context) error {
	id, ok := spotID(c)
	if !ok {
		return badRequest(c, "invalid spot id")
	}
	spot, err := h.Reg.Release(c.Request().Context(), middleware.Caller(c), id)
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(http.StatusOK, toSpotResp(spot))
}

// GetSpot handles GET /v1/spots/:id.
func (h *SpotHandler) GetSpot(c echo.Context) error {
	id, ok := spotID(c)
	if !ok {
		return badRequest(c, "invalid spot id")
	}
	spot, err := h.Reg.GetSpot(c.Request().Context(), id)
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(http.StatusOK, toSpotResp(spot))
}

// ListSpots handles GET /v1/spots.  Supported query parameters are
// location, available, page and page_size.
func (h *SpotHandler) ListSpots(c echo.Context) error {
	spots, err := h.Reg.ListSpots(c.Request().Context())
	if err != nil {
		return registryError(c, err)
	}
	q := parseSpotQuery(c)
	page, total := q.filter(spots)
	out := make([]spotResp, 0, len(page))
	for _, s := range page {
		out = append(out, toSpotResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"spots":     out,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

func spotID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil
}
