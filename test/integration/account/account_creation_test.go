package account

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/test/integration/testenv"
)

func TestCreateAccount(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.CreateAccount(t, router, "acc-create-1")

	funds := testenv.GetFunds(t, router, "acc-create-1")
	assert.Equal(t, int64(0), funds, "new account should have zero funds")
}

func TestCreateAccountDuplicateIsRejected(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.CreateAccount(t, router, "acc-create-dup")

	body, _ := json.Marshal(map[string]string{"id": "acc-create-dup"})
	req := httptest.NewRequest("POST", "/accounts", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	testenv.AssertHasError(t, resp)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, "CONFLICT", result["code"])
}

func TestCreateAccountInvalid(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	body := map[string]string{"id": ""}
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest("POST", "/accounts", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	testenv.AssertHasError(t, resp)
}
