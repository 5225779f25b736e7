// Package explain calls the remote language-model service that turns a
// prediction into free-text reasoning. The service is treated as opaque and
// possibly failing; a prediction is never blocked on it.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"riskcore/pkg/common"
)

type Client struct {
	url  string
	http *http.Client
}

// New returns a client for the given endpoint. An empty url yields a
// disabled client whose Explain always errors.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool { return c.url != "" }

type request struct {
	Label       string             `json:"label"`
	Probability float64            `json:"probability"`
	Profile     map[string]float64 `json:"profile"`
}

// Explanation is the remote service's narrative for one prediction.
type Explanation struct {
	Reasoning   string   `json:"reasoning"`
	Mitigations []string `json:"mitigations"`
	References  []string `json:"references"`
}

// Explain posts the prediction and original profile to the remote service.
func (c *Client) Explain(ctx context.Context, rec common.PredictionRecord) (*Explanation, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("explain: no endpoint configured")
	}

	profile := make(map[string]float64, common.FeatureCount)
	for i, v := range rec.Features {
		if i < common.FeatureCount {
			profile[common.FeatureNames[i]] = v
		}
	}
	body, err := json.Marshal(request{
		Label:       rec.Label.String(),
		Probability: rec.Probability,
		Profile:     profile,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explain: service returned %s", resp.Status)
	}

	var out Explanation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("explain: decode response: %w", err)
	}
	return &out, nil
}
