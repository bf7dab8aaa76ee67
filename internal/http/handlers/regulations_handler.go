package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-backend/internal/search"
	"github.com/tbourn/go-rag-backend/internal/utils"
)

// Regulation is one indexed regulation and the size of its chunk corpus.
type Regulation struct {
	Regulation  string `json:"regulation" example:"far"`
	DisplayName string `json:"display_name" example:"Far"`
	Chunks      int64  `json:"chunks" example:"1424"`
}

// ListRegulationsResponse wraps the indexed regulation list.
type ListRegulationsResponse struct {
	Regulations []Regulation `json:"regulations"`
}

// ListRegulations godoc
// @ID          listRegulations
// @Summary     List indexed regulations
// @Description Returns the regulations available for retrieval, largest corpus first. Public endpoint.
// @Tags        Regulations
// @Produce     json
//
// @Param       limit  query  int  false  "Maximum entries"  minimum(1) maximum(100) default(50)
//
// @Success     200  {object} handlers.ListRegulationsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /regulations [get]
func (h *Handlers) ListRegulations(c *gin.Context) {
	const (
		defaultLimit = 50
		maxLimit     = 100
	)
	limit := utils.AtoiDefault(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	counts, err := h.regSvc.Counts(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list regulations")
		return
	}

	regs := make([]Regulation, 0, len(counts))
	for _, rc := range counts {
		regs = append(regs, Regulation{
			Regulation:  rc.Regulation,
			DisplayName: search.DisplayName(rc.Regulation),
			Chunks:      rc.Count,
		})
	}
	ok(c, http.StatusOK, ListRegulationsResponse{Regulations: regs})
}
