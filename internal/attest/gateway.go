package attest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"agent-storefront/internal/util"
)

// GatewayPublisher publishes attestations through the attestation
// network's HTTP gateway.
type GatewayPublisher struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewGatewayPublisher creates a gateway publisher
func NewGatewayPublisher(baseURL string, timeout time.Duration) *GatewayPublisher {
	return &GatewayPublisher{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type publishResponse struct {
	UID string `json:"uid"`
}

// Publish submits a signed attestation and returns its ledger reference
func (g *GatewayPublisher) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	ctx, span := util.StartSpan(ctx, "GatewayPublisher.Publish")
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal attestation: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, g.baseURL+"/attestations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("attestation gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("attestation publish failed: status %d: %s", resp.StatusCode, detail)
	}

	var out publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if out.UID == "" {
		return "", fmt.Errorf("gateway response missing attestation uid")
	}

	return out.UID, nil
}
