package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/httpclient"
)

// HTTPPreferenceLoader fetches user-preference context from the profile
// service. Failures return nil: personalization is best effort.
type HTTPPreferenceLoader struct {
	baseURL string
	http    *httpclient.Client
	log     *slog.Logger
}

func NewHTTPPreferenceLoader(baseURL string, hc *httpclient.Client) *HTTPPreferenceLoader {
	if hc == nil {
		hc = httpclient.New(
			httpclient.WithTimeout(3*time.Second),
			httpclient.WithRetryStrategy(func(int) httpclient.RetryStrategy { return httpclient.NoRetry }),
		)
	}
	return &HTTPPreferenceLoader{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		log:     slog.Default().With("component", "preferences"),
	}
}

var _ PreferenceLoader = (*HTTPPreferenceLoader)(nil)

func (l *HTTPPreferenceLoader) Load(ctx context.Context, participantID string, userID *int64) map[string]any {
	q := url.Values{}
	q.Set("participant", participantID)
	if userID != nil {
		q.Set("user_id", strconv.FormatInt(*userID, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		l.baseURL+"/profile/preferences?"+q.Encode(), nil)
	if err != nil {
		return nil
	}
	resp, err := l.http.Do(req)
	if err != nil {
		l.log.Warn("preference load failed", "participant", participantID, "error", err)
		return nil
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		l.log.Warn("preference decode failed", "error", err)
		return nil
	}
	return out
}

// HTTPTrainingRecorder posts intent and sentiment samples to the
// training service.
type HTTPTrainingRecorder struct {
	baseURL string
	http    *httpclient.Client
}

func NewHTTPTrainingRecorder(baseURL string, hc *httpclient.Client) *HTTPTrainingRecorder {
	if hc == nil {
		hc = httpclient.New(
			httpclient.WithTimeout(3*time.Second),
			httpclient.WithRetryStrategy(func(int) httpclient.RetryStrategy { return httpclient.NoRetry }),
		)
	}
	return &HTTPTrainingRecorder{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

var _ TrainingRecorder = (*HTTPTrainingRecorder)(nil)

func (r *HTTPTrainingRecorder) Record(ctx context.Context, sample TrainingSample) error {
	raw, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/training/samples", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("training record: %w", err)
	}
	resp.Body.Close()
	return nil
}
