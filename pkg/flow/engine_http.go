package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/httpclient"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// HTTPEngine drives the flow runtime over its REST surface.
type HTTPEngine struct {
	baseURL string
	http    *httpclient.Client
}

func NewHTTPEngine(baseURL string, hc *httpclient.Client) *HTTPEngine {
	if hc == nil {
		hc = httpclient.New(httpclient.WithTimeout(10 * time.Second))
	}
	return &HTTPEngine{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var _ Engine = (*HTTPEngine)(nil)

func (e *HTTPEngine) ActiveFlow(ctx context.Context, key string) (*session.FlowRef, error) {
	var out struct {
		Active bool             `json:"active"`
		Flow   *session.FlowRef `json:"flow"`
	}
	if err := e.get(ctx, "/flows/active/"+url.PathEscape(key), &out); err != nil {
		return nil, err
	}
	if !out.Active {
		return nil, nil
	}
	return out.Flow, nil
}

func (e *HTTPEngine) InWaitState(ctx context.Context, key string) (bool, error) {
	var out struct {
		Waiting bool `json:"waiting"`
	}
	if err := e.get(ctx, "/flows/wait-state/"+url.PathEscape(key), &out); err != nil {
		return false, err
	}
	return out.Waiting, nil
}

func (e *HTTPEngine) Process(ctx context.Context, key string, in ProcessInput) (*StepResult, error) {
	var out StepResult
	err := e.post(ctx, "/flows/process/"+url.PathEscape(key), in, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *HTTPEngine) Start(ctx context.Context, key, flowID string, initCtx map[string]any) (*StepResult, error) {
	body := map[string]any{
		"flow_id": flowID,
		"context": initCtx,
	}
	var out StepResult
	if err := e.post(ctx, "/flows/start/"+url.PathEscape(key), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *HTTPEngine) Suspend(ctx context.Context, key string) error {
	return e.post(ctx, "/flows/suspend/"+url.PathEscape(key), nil, nil)
}

func (e *HTTPEngine) Cancel(ctx context.Context, key string) error {
	return e.post(ctx, "/flows/cancel/"+url.PathEscape(key), nil, nil)
}

func (e *HTTPEngine) Resume(ctx context.Context, key string) (bool, error) {
	var out struct {
		Resumed bool `json:"resumed"`
	}
	if err := e.post(ctx, "/flows/resume/"+url.PathEscape(key), nil, &out); err != nil {
		return false, err
	}
	return out.Resumed, nil
}

func (e *HTTPEngine) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return err
	}
	return e.do(req, out)
}

func (e *HTTPEngine) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, reader)
	if err != nil {
		return err
	}
	if raw != nil {
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(raw)), nil
		}
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(req, out)
}

func (e *HTTPEngine) do(req *http.Request, out any) error {
	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("flow engine %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("flow engine decode %s: %w", req.URL.Path, err)
	}
	return nil
}
