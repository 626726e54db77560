package account

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/test/integration/testenv"
)

func TestWithdraw(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.SeedFunds(t, router, "acc-withdraw-1", 5000)

	resp := testenv.Withdraw(t, router, "acc-withdraw-1", 3000)
	require.Equal(t, http.StatusOK, resp.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, "acc-withdraw-1", result["id"])
	assert.EqualValues(t, 3000, result["amount"])

	funds := testenv.GetFunds(t, router, "acc-withdraw-1")
	assert.Equal(t, int64(2000), funds)
}

func TestWithdrawInvalidAmount(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.SeedFunds(t, router, "acc-withdraw-invalid", 500)

	resp := testenv.Withdraw(t, router, "acc-withdraw-invalid", -100)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	testenv.AssertHasError(t, resp)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.SeedFunds(t, router, "acc-withdraw-insufficient", 100)

	resp := testenv.Withdraw(t, router, "acc-withdraw-insufficient", 500)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	testenv.AssertHasError(t, resp)

	funds := testenv.GetFunds(t, router, "acc-withdraw-insufficient")
	assert.Equal(t, int64(100), funds, "funds should remain unchanged after a rejected withdrawal")
}

func TestWithdrawNonexistentAccount(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	resp := testenv.Withdraw(t, router, "acc-does-not-exist", 100)

	require.Equal(t, http.StatusNotFound, resp.Code)
	testenv.AssertHasError(t, resp)
}

// TestConcurrentWithdraw releases n withdrawals against one account at
// once, all against the same Service (and so the same in-process
// aggregate cache), with no per-id lock serializing them -- the log's
// optimistic version check on Publish (internal/eventlog) is the only
// thing standing between this and a double-spend. Some requests losing
// the race and coming back 409 is expected and correct; what must never
// happen is two withdrawals both applying against the same starting
// version. The final balance is checked against exactly the withdrawals
// that reported success, which is only possible if every 200 reflects a
// distinct, non-overlapping version bump.
func TestConcurrentWithdraw(t *testing.T) {
	router := testenv.SetupTestRouter(t)

	testenv.SeedFunds(t, router, "acc-withdraw-concurrent", 10000)

	const n = 50
	const amount = 100
	var wg sync.WaitGroup
	wg.Add(n)

	start := make(chan struct{})
	codes := make([]int, n)

	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			<-start
			resp := testenv.Withdraw(t, router, "acc-withdraw-concurrent", amount)
			codes[i] = resp.Code
		}()
	}
	close(start)
	wg.Wait()

	var successes, conflicts int
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			successes++
		case http.StatusConflict:
			conflicts++
		default:
			t.Errorf("unexpected status %d from concurrent withdraw", code)
		}
	}

	assert.Greater(t, successes, 0, "at least one concurrent withdrawal should win the race")
	assert.Greater(t, conflicts, 0, "truly concurrent writers to one account should produce at least one optimistic-concurrency conflict")

	funds := testenv.GetFunds(t, router, "acc-withdraw-concurrent")
	want := int64(10000) - int64(successes)*int64(amount)
	assert.Equal(t, want, funds, "funds must reflect exactly the withdrawals that reported success, no more and no less")
}
