package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/httpclient"
)

// ClassifyRequest carries the message plus conversational context to the
// remote NLU service.
type ClassifyRequest struct {
	Message        string `json:"message"`
	Module         string `json:"module,omitempty"`
	ActiveFlowID   string `json:"active_flow_id,omitempty"`
	LastBotMessage string `json:"last_bot_message,omitempty"`
}

// Classification is the NLU verdict.
type Classification struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
	Raw        map[string]any `json:"raw,omitempty"`
}

// Classifier is the remote NLU capability. Tests stub it; production
// uses HTTPClassifier.
type Classifier interface {
	Classify(ctx context.Context, req *ClassifyRequest) (*Classification, error)
}

// HTTPClassifier calls the NLU sidecar over HTTP.
type HTTPClassifier struct {
	baseURL string
	http    *httpclient.Client
}

func NewHTTPClassifier(baseURL string, hc *httpclient.Client) *HTTPClassifier {
	if hc == nil {
		hc = httpclient.New(httpclient.WithTimeout(5 * time.Second))
	}
	return &HTTPClassifier{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *HTTPClassifier) Classify(ctx context.Context, req *ClassifyRequest) (*Classification, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("nlu classify: %w", err)
	}
	defer resp.Body.Close()

	var out Classification
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("nlu decode: %w", err)
	}
	if out.Intent == "" {
		out.Intent = "unknown"
	}
	return &out, nil
}

var _ Classifier = (*HTTPClassifier)(nil)
