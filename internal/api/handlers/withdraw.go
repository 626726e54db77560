package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/internal/pkg/apperrors"
	"ledger/internal/pkg/logging"
)

// MakeWithdrawHandler builds the POST /accounts/:id/withdrawals handler.
func MakeWithdrawHandler(svc AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var req amountRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			apiErr := apperrors.NewValidationError("amount must be positive")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		res, err := svc.Withdraw(c.Request.Context(), id, req.Amount)
		if err != nil {
			apiErr := apperrors.FromKind(err)
			logging.Warn("withdraw failed", map[string]interface{}{"id": id, "error": err.Error()})
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
