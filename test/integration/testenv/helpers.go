package testenv

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// CreateAccount issues POST /accounts for id and fails the test unless
// it gets back 201 Created.
func CreateAccount(t *testing.T, r *gin.Engine, id string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"id": id})

	req := httptest.NewRequest("POST", "/accounts", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("create account %s: got %d: %s", id, resp.Code, resp.Body.String())
	}
}

// GetFunds issues GET /accounts/:id and returns the snapshot's funds.
func GetFunds(t *testing.T, r *gin.Engine, id string) int64 {
	t.Helper()
	req := httptest.NewRequest("GET", "/accounts/"+id, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("get account %s: got %d: %s", id, resp.Code, resp.Body.String())
	}

	var snapshot struct {
		Funds int64 `json:"funds"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot for %s: %v", id, err)
	}
	return snapshot.Funds
}

// Deposit issues POST /accounts/:id/deposits and returns the response
// recorder so callers can assert on both success and conflict/validation
// status codes without the helper dictating which is expected.
func Deposit(t *testing.T, r *gin.Engine, id string, amount int64) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]int64{"amount": amount})

	req := httptest.NewRequest("POST", "/accounts/"+id+"/deposits", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

// Withdraw issues POST /accounts/:id/withdrawals and returns the
// response recorder, same contract as Deposit.
func Withdraw(t *testing.T, r *gin.Engine, id string, amount int64) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]int64{"amount": amount})

	req := httptest.NewRequest("POST", "/accounts/"+id+"/withdrawals", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

// SeedFunds creates id and deposits amount into it through the real
// HTTP surface, so fixtures flow through the same event log a
// production deposit would rather than writing state directly.
func SeedFunds(t *testing.T, r *gin.Engine, id string, amount int64) {
	t.Helper()
	CreateAccount(t, r, id)
	if amount <= 0 {
		return
	}
	resp := Deposit(t, r, id, amount)
	if resp.Code != http.StatusOK {
		t.Fatalf("seed funds for %s: got %d: %s", id, resp.Code, resp.Body.String())
	}
}

// AssertHasError checks the response carries an apperrors.APIError body
// with a non-empty message.
func AssertHasError(t *testing.T, resp *httptest.ResponseRecorder) {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	message, ok := result["message"]
	assert.True(t, ok, "expected an error body with a message field, got %s", resp.Body.String())
	assert.NotEmpty(t, message, "expected error message to be present")
}
