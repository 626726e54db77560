package account

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/test/integration/testenv"
)

func TestSimpleDeposit(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.CreateAccount(t, router, "acc-deposit-1")

	resp := testenv.Deposit(t, router, "acc-deposit-1", 2500)
	require.Equal(t, http.StatusOK, resp.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, "acc-deposit-1", result["id"])
	assert.EqualValues(t, 2500, result["amount"])

	funds := testenv.GetFunds(t, router, "acc-deposit-1")
	assert.Equal(t, int64(2500), funds)
}

func TestDepositAccumulates(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.CreateAccount(t, router, "acc-deposit-2")

	require.Equal(t, http.StatusOK, testenv.Deposit(t, router, "acc-deposit-2", 1000).Code)
	require.Equal(t, http.StatusOK, testenv.Deposit(t, router, "acc-deposit-2", 500).Code)

	funds := testenv.GetFunds(t, router, "acc-deposit-2")
	assert.Equal(t, int64(1500), funds)
}

func TestDepositInvalidAmount(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.CreateAccount(t, router, "acc-deposit-invalid")

	resp := testenv.Deposit(t, router, "acc-deposit-invalid", -100)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	testenv.AssertHasError(t, resp)
}

func TestDepositNonexistentAccount(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	resp := testenv.Deposit(t, router, "acc-does-not-exist", 100)

	require.Equal(t, http.StatusNotFound, resp.Code)
	testenv.AssertHasError(t, resp)
}
