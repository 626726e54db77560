package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/internal/pkg/apperrors"
	"ledger/internal/pkg/logging"
)

// amountRequest is the shared body for deposits and withdrawals:
// {"amount": <int64 minor units>}.
type amountRequest struct {
	Amount int64 `json:"amount"`
}

// MakeDepositHandler builds the POST /accounts/:id/deposits handler.
func MakeDepositHandler(svc AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var req amountRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			apiErr := apperrors.NewValidationError("amount must be positive")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		res, err := svc.Deposit(c.Request.Context(), id, req.Amount)
		if err != nil {
			apiErr := apperrors.FromKind(err)
			logging.Warn("deposit failed", map[string]interface{}{"id": id, "error": err.Error()})
			c.JSON(apiErr.Status, apiErr)
			return
		}
		if res == nil {
			apiErr := apperrors.NewMutationConflict(id)
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}
