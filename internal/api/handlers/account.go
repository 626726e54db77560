package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/internal/pkg/apperrors"
	"ledger/internal/pkg/logging"
	metrics "ledger/internal/pkg/telemetry"
)

// createRequest is the POST /accounts body: {"id": <string>}.
type createRequest struct {
	ID string `json:"id"`
}

// MakeCreateAccountHandler builds the POST /accounts handler, closing
// over the Account Service the way the teacher's MakeXHandler(container)
// closures capture their dependencies at registration time.
func MakeCreateAccountHandler(svc AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
			apiErr := apperrors.NewValidationError("id is required")
			logging.Warn("invalid create account request", map[string]interface{}{"ip": c.ClientIP()})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		res, err := svc.Create(c.Request.Context(), req.ID)
		if err != nil {
			apiErr := apperrors.FromKind(err)
			logging.Warn("create account failed", map[string]interface{}{"id": req.ID, "error": err.Error()})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		logging.Info("account created", map[string]interface{}{"id": res.ID})
		c.JSON(http.StatusCreated, res)
	}
}

// MakeGetAccountHandler builds the GET /accounts/:id handler: fetches
// and projects the current aggregate snapshot.
func MakeGetAccountHandler(svc AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if id == "" {
			apiErr := apperrors.NewValidationError("id is required")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		snap, err := svc.Fetch(c.Request.Context(), id)
		if err != nil {
			apiErr := apperrors.FromKind(err)
			c.JSON(apiErr.Status, apiErr)
			return
		}

		metrics.Record("GET /accounts/:id", http.StatusOK, 0)
		c.JSON(http.StatusOK, snap)
	}
}
