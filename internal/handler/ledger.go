package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-rental/internal/middleware"
	"github.com/iliyamo/parking-rental/internal/model"
	"github.com/iliyamo/parking-rental/internal/registry"
)

// LedgerHandler serves the owner's view of captured funds.
type LedgerHandler struct {
	Reg *registry.Registry
}

func NewLedgerHandler(reg *registry.Registry) *LedgerHandler { return &LedgerHandler{Reg: reg} }

type ledgerEntryResp struct {
	ID        uint64    `json:"id"`
	SpotID    uint64    `json:"spot_id,omitempty"`
	Party     string    `json:"party"`
	Amount    uint64    `json:"amount"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

func toLedgerResp(e model.LedgerEntry) ledgerEntryResp {
	return ledgerEntryResp{
		ID:        e.ID,
		SpotID:    e.SpotID,
		Party:     e.Party.String(),
		Amount:    e.Amount,
		Kind:      e.Kind,
		CreatedAt: e.CreatedAt,
	}
}

// Ledger handles GET /v1/ledger.  Only the registry owner may read it.
func (h *LedgerHandler) Ledger(c echo.Context) error {
	if middleware.Caller(c) != h.Reg.Owner() {
		return registryError(c, registry.ErrUnauthorized)
	}
	entries, held, err := h.Reg.Ledger(c.Request().Context())
	if err != nil {
		return registryError(c, err)
	}
	out := make([]ledgerEntryResp, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"held": held, "entries": out})
}

// Withdraw handles POST /v1/ledger/withdraw.
func (h *LedgerHandler) Withdraw(c echo.Context) error {
	entry, err := h.Reg.Withdraw(c.Request().Context(), middleware.Caller(c))
	if err != nil {
		return registryError(c, err)
	}
	return c.JSON(http.StatusOK, toLedgerResp(entry))
}
