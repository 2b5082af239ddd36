package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opexam/opexam-backend/internal/repository"
	"github.com/opexam/opexam-backend/internal/response"
)

// ResultHandler serves persisted score breakdowns.
type ResultHandler struct {
	results *repository.ResultRepository
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results *repository.ResultRepository) *ResultHandler {
	return &ResultHandler{results: results}
}

// Get godoc
// GET /api/v1/results/:result_id
func (h *ResultHandler) Get(c *gin.Context) {
	resultID, err := uuid.Parse(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.results.GetByID(c.Request.Context(), resultID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, result)
}
