//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

const (
	defaultEntitlementsHTTPBase = "http://localhost:48080"
	defaultSeededUserEmail      = "a@b.com"
)

// seededUserEmail must exist in the users table before the run; the service
// has no account-creation surface of its own.
func seededUserEmail() string {
	if value := strings.TrimSpace(os.Getenv("ENTITLEMENTS_TEST_EMAIL")); value != "" {
		return value
	}
	return defaultSeededUserEmail
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *httpClient) doJSON(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", fmt.Sprintf("e2e-http-%d", time.Now().UnixNano()))

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}

	return resp, bodyBytes
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest(http.MethodGet, baseURL+"/health", nil)
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func confirmBody(transactionID, plan string, amount float64, email, status string) map[string]any {
	return map[string]any{
		"transactionId": transactionID,
		"plan":          plan,
		"amount":        amount,
		"email":         email,
		"status":        status,
		"createdAt":     time.Now().UTC().Format(time.RFC3339),
	}
}

func TestEntitlementsE2E(t *testing.T) {
	httpBase := os.Getenv("ENTITLEMENTS_HTTP_URL")
	if httpBase == "" {
		httpBase = defaultEntitlementsHTTPBase
	}

	if err := waitForHTTP(httpBase, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	client := newHTTPClient(httpBase)
	email := seededUserEmail()
	transactionID := fmt.Sprintf("e2e-tx-%d", time.Now().UnixNano())

	var firstRedirectURL string

	t.Run("ConfirmAppliesEntitlement", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/payments/confirm",
			confirmBody(transactionID, "premium", 97.00, email, "approved"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal confirm response failed: %v body=%s", err, string(body))
		}
		if payload["success"] != true {
			t.Fatalf("expected success=true, got %v", payload)
		}
		redirectURL, _ := payload["redirectUrl"].(string)
		if redirectURL == "" {
			t.Fatalf("expected a redirect url, got %v", payload)
		}
		firstRedirectURL = redirectURL
	})

	t.Run("ConfirmReplayIsIdempotent", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodPost, "/payments/confirm",
			confirmBody(transactionID, "premium", 97.00, email, "approved"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 on replay, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal replay response failed: %v body=%s", err, string(body))
		}
		if payload["success"] != true {
			t.Fatalf("replay must succeed, got %v", payload)
		}
		if payload["redirectUrl"] != firstRedirectURL {
			t.Fatalf("replay must redirect identically: %v vs %s", payload["redirectUrl"], firstRedirectURL)
		}
	})

	t.Run("GetConfirmationSnapshot", func(t *testing.T) {
		resp, body := client.doJSON(t, http.MethodGet, "/payments/confirmations/"+transactionID, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal snapshot failed: %v body=%s", err, string(body))
		}
		if payload["transactionId"] != transactionID || payload["plan"] != "premium" || payload["planStatus"] != "active" {
			t.Fatalf("unexpected snapshot: %v", payload)
		}
	})

	t.Run("GetConfirmationUnknownTransaction", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodGet, "/payments/confirmations/e2e-tx-missing", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("ConfirmPendingIsAcknowledged", func(t *testing.T) {
		pendingTx := fmt.Sprintf("e2e-tx-pending-%d", time.Now().UnixNano())
		resp, body := client.doJSON(t, http.MethodPost, "/payments/confirm",
			confirmBody(pendingTx, "premium", 97.00, email, "pending"))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 acknowledgment, got %d body=%s", resp.StatusCode, string(body))
		}
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal pending response failed: %v body=%s", err, string(body))
		}
		if payload["success"] != false {
			t.Fatalf("pending payment must report success=false, got %v", payload)
		}

		resp, _ = client.doJSON(t, http.MethodGet, "/payments/confirmations/"+pendingTx, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("pending payment must not provision, got %d", resp.StatusCode)
		}
	})

	t.Run("ConfirmValidation", func(t *testing.T) {
		resp, _ := client.doJSON(t, http.MethodPost, "/payments/confirm", map[string]any{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for empty payload, got %d", resp.StatusCode)
		}
	})

	t.Run("ConfirmUnknownPlan", func(t *testing.T) {
		tx := fmt.Sprintf("e2e-tx-plan-%d", time.Now().UnixNano())
		resp, _ := client.doJSON(t, http.MethodPost, "/payments/confirm",
			confirmBody(tx, "platinum", 97.00, email, "approved"))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown plan, got %d", resp.StatusCode)
		}
	})

	t.Run("ConfirmAmountMismatch", func(t *testing.T) {
		tx := fmt.Sprintf("e2e-tx-amount-%d", time.Now().UnixNano())
		resp, _ := client.doJSON(t, http.MethodPost, "/payments/confirm",
			confirmBody(tx, "premium", 50.00, email, "approved"))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for amount mismatch, got %d", resp.StatusCode)
		}
	})

	t.Run("ConfirmUnknownEmail", func(t *testing.T) {
		tx := fmt.Sprintf("e2e-tx-email-%d", time.Now().UnixNano())
		resp, _ := client.doJSON(t, http.MethodPost, "/payments/confirm",
			confirmBody(tx, "premium", 97.00, fmt.Sprintf("e2e-missing-%d@example.com", time.Now().UnixNano()), "approved"))
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown email, got %d", resp.StatusCode)
		}
	})
}
