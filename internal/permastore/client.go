package permastore

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

// Client uploads documents to the content-addressed permanent store.
// Uploads are write-once; the returned reference is derived from the
// content and immutable.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a permanent store client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type uploadResponse struct {
	URI string `json:"uri"`
}

// Upload stores a JSON document and returns its content reference
func (c *Client) Upload(ctx context.Context, name string, doc any) (string, error) {
	ctx, span := util.StartSpan(ctx, "PermastoreClient.Upload")
	defer span.End()

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Document-Name", name)

	resp, err := c.http.Do(req)
	if err != nil {
		util.PermastoreUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("permanent store unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		util.PermastoreUploadsTotal.WithLabelValues("error").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("permanent store upload failed: status %d: %s", resp.StatusCode, detail)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		util.PermastoreUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if out.URI == "" {
		util.PermastoreUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("upload response missing uri")
	}

	util.PermastoreUploadsTotal.WithLabelValues("success").Inc()
	return out.URI, nil
}
