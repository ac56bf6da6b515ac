package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Remote talks to an execution RPC service over HTTP/JSON. Requests are
// retried with a short backoff; persistent failures surface to the engine as
// step-level errors.
type Remote struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRemote builds a remote adapter for the given base URL.
func NewRemote(baseURL, apiKey string) *Remote {
	return &Remote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

const remoteRetries = 3

func (r *Remote) request(method, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", path, err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < remoteRetries; attempt++ {
		req, err := http.NewRequest(method, r.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if r.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.APIKey)
		}
		resp, err := r.Client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}
		func() {
			defer resp.Body.Close()
			if resp.StatusCode >= 300 {
				lastErr = fmt.Errorf("remote %s: status %d", path, resp.StatusCode)
				return
			}
			lastErr = json.NewDecoder(resp.Body).Decode(out)
		}()
		if lastErr == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
	}
	return fmt.Errorf("remote %s unreachable: %w", path, lastErr)
}

func (r *Remote) GetPrices() (map[string]float64, error) {
	var out map[string]float64
	if err := r.request(http.MethodGet, "/prices", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Remote) GetFundingRates() (map[string]float64, error) {
	var out map[string]float64
	if err := r.request(http.MethodGet, "/funding", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Remote) EstimateSlippageBps(symbol string, deltaUSD float64) (int, error) {
	var out struct {
		Bps int `json:"bps"`
	}
	payload := map[string]any{"symbol": symbol, "delta_usd": deltaUSD}
	if err := r.request(http.MethodPost, "/slippage", payload, &out); err != nil {
		return 0, err
	}
	return out.Bps, nil
}

func (r *Remote) PlaceOrder(symbol, side string, deltaUSD float64) (Fill, error) {
	var out Fill
	payload := map[string]any{"symbol": symbol, "side": side, "delta_usd": deltaUSD}
	if err := r.request(http.MethodPost, "/orders", payload, &out); err != nil {
		return Fill{}, err
	}
	return out, nil
}
