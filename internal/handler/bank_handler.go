package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opexam/opexam-backend/internal/model"
	"github.com/opexam/opexam-backend/internal/response"
	"github.com/opexam/opexam-backend/internal/service"
	"github.com/opexam/opexam-backend/internal/validator"
)

// BankHandler manages question banks.
type BankHandler struct {
	banks *service.BankService
}

// NewBankHandler creates a new BankHandler.
func NewBankHandler(banks *service.BankService) *BankHandler {
	return &BankHandler{banks: banks}
}

// Create godoc
// POST /api/v1/banks
func (h *BankHandler) Create(c *gin.Context) {
	var req model.CreateBankRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	bank := &model.QuestionBank{Name: req.Name, Description: req.Description}
	if err := h.banks.CreateBank(c.Request.Context(), bank); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, bank)
}

// List godoc
// GET /api/v1/banks
func (h *BankHandler) List(c *gin.Context) {
	banks, err := h.banks.ListBanks(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if banks == nil {
		banks = []model.QuestionBank{}
	}
	response.Success(c, http.StatusOK, gin.H{"banks": banks})
}

// Get godoc
// GET /api/v1/banks/:bank_id
func (h *BankHandler) Get(c *gin.Context) {
	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	bank, err := h.banks.GetBank(c.Request.Context(), bankID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, bank)
}

// ReplaceQuestions godoc
// PUT /api/v1/banks/:bank_id/questions
// Replaces the bank's entire question list.
func (h *BankHandler) ReplaceQuestions(c *gin.Context) {
	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.banks.ReplaceQuestions(c.Request.Context(), bankID, req.Questions)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload,
			map[string]string{"detail": err.Error()})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}
