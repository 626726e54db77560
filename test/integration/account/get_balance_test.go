package account

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/test/integration/testenv"
)

func TestGetAccount(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.SeedFunds(t, router, "acc-get-1", 7500)

	funds := testenv.GetFunds(t, router, "acc-get-1")
	assert.Equal(t, int64(7500), funds)
}

func TestGetAccountNonexistent(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	req := httptest.NewRequest("GET", "/accounts/acc-does-not-exist", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	testenv.AssertHasError(t, resp)
}
