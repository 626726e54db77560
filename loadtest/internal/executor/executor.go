package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Executor drives the ledger's four documented HTTP endpoints
// (spec.md §6): no transfer, no numeric ids, no owner field — accounts
// are opaque string ids supplied by the caller, and amounts are integer
// minor units end to end.
type Executor struct {
	client  *http.Client
	baseURL string
}

func New(baseURL string) *Executor {
	return &Executor{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 100,
				MaxConnsPerHost:     100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: baseURL,
	}
}

// CreateAccount issues POST /accounts for the given id. The generator's
// setup phase supplies the id; a 400 conflict (id already exists) is
// reported like any other error.
func (e *Executor) CreateAccount(ctx context.Context, id string) (string, error) {
	payload := map[string]string{"id": id}
	if _, err := e.post(ctx, "/accounts", payload); err != nil {
		return "", err
	}
	return id, nil
}

// Deposit issues POST /accounts/:id/deposits with amount in minor units.
func (e *Executor) Deposit(ctx context.Context, accountID string, amount int64) error {
	payload := map[string]int64{"amount": amount}
	_, err := e.post(ctx, fmt.Sprintf("/accounts/%s/deposits", accountID), payload)
	return err
}

// Withdraw issues POST /accounts/:id/withdrawals with amount in minor units.
func (e *Executor) Withdraw(ctx context.Context, accountID string, amount int64) error {
	payload := map[string]int64{"amount": amount}
	_, err := e.post(ctx, fmt.Sprintf("/accounts/%s/withdrawals", accountID), payload)
	return err
}

// Fetch issues GET /accounts/:id and returns the snapshot's funds.
func (e *Executor) Fetch(ctx context.Context, accountID string) (int64, error) {
	resp, err := e.get(ctx, fmt.Sprintf("/accounts/%s", accountID))
	if err != nil {
		return 0, err
	}

	var snapshot struct {
		Funds int64 `json:"funds"`
	}
	if err := json.Unmarshal(resp, &snapshot); err != nil {
		return 0, fmt.Errorf("failed to parse snapshot response: %w", err)
	}

	return snapshot.Funds, nil
}

func (e *Executor) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Load-Test", "true")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody.String())
	}

	return respBody.Bytes(), nil
}

func (e *Executor) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", e.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Load-Test", "true")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody.String())
	}

	return respBody.Bytes(), nil
}
