package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
	apperrors "github.com/glucopilot/glucopilot-agent/internal/errors"
	"github.com/glucopilot/glucopilot-agent/internal/metrics"
	"github.com/glucopilot/glucopilot-agent/internal/utils"
)

// DefaultInsightTimeframe is used when FetchInsights gets a non-positive
// timeframe.
const DefaultInsightTimeframe = 24 * time.Hour

// SyncService owns the backend session: it pushes snapshots, requests
// insights, and drives the stateless Dexcom endpoints. Failures surface as
// the typed taxonomy in internal/errors; the service never retries (retry
// is a caller policy).
type SyncService struct {
	baseURL string
	http    *http.Client
}

// NewSyncService builds a service against baseURL. Every request carries
// Content-Type: application/json and, whenever creds currently holds a
// token, Authorization: Bearer. Token absence is not fatal; the request
// proceeds unauthenticated and the server decides.
func NewSyncService(baseURL string, creds domain.CredentialProvider, timeout time.Duration) *SyncService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SyncService{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &bearerTransport{
				base:  http.DefaultTransport,
				creds: creds,
			},
		},
	}
}

// bearerTransport consults the credential provider on every round trip and
// attaches the token opportunistically. It never blocks waiting for a token
// and never refreshes one; rotation is the provider's concern.
type bearerTransport struct {
	base  http.RoundTripper
	creds domain.CredentialProvider
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.creds == nil {
		return t.base.RoundTrip(req)
	}
	token, ok := t.creds.Token()
	if !ok {
		return t.base.RoundTrip(req)
	}
	// Clone so the caller's request stays untouched.
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(cloned)
}

// Sync pushes one snapshot to the backend. The response body of a 2xx is
// not interpreted; the result is computed locally from the snapshot itself.
func (s *SyncService) Sync(ctx context.Context, snapshot *domain.HealthSnapshot) (*domain.SyncResult, error) {
	metrics.SyncAttempts.Inc()

	resp, err := s.postJSON(ctx, "health sync", "/api/health/sync", snapshot)
	if err != nil {
		metrics.SyncFailures.Inc()
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.SyncFailures.Inc()
		return nil, serverError(resp)
	}

	result := domain.NewSyncResult(snapshot)
	metrics.LastSyncTimestamp.SetToCurrentTime()
	return &result, nil
}

type insightsRequest struct {
	Timeframe              string `json:"timeframe"`
	IncludeRecommendations bool   `json:"include_recommendations"`
}

type insightsResponse struct {
	Insights []rawInsight `json:"insights"`
}

// FetchInsights asks the backend for AI insights over the timeframe. Items
// that fail validation are skipped; a list that normalizes to empty is
// replaced by the fixed fallback pair.
func (s *SyncService) FetchInsights(ctx context.Context, timeframe time.Duration) ([]domain.Insight, error) {
	if timeframe <= 0 {
		timeframe = DefaultInsightTimeframe
	}

	req := insightsRequest{
		Timeframe:              utils.TimeframeString(timeframe),
		IncludeRecommendations: true,
	}
	resp, err := s.postJSON(ctx, "fetch insights", "/api/insights/generate", req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serverError(resp)
	}

	var payload insightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeAPI, "INVALID_DATA", "failed to decode insights response")
	}

	now := time.Now().UTC()
	insights := make([]domain.Insight, 0, len(payload.Insights))
	for _, raw := range payload.Insights {
		if insight, ok := normalizeInsight(raw, now); ok {
			insights = append(insights, insight)
		}
	}
	if len(insights) == 0 {
		metrics.InsightFallbacks.Inc()
		return fallbackInsights(now), nil
	}
	return insights, nil
}

// SignIn validates Dexcom share credentials against the backend.
func (s *SyncService) SignIn(ctx context.Context, creds domain.DexcomCredentials) error {
	resp, err := s.postJSON(ctx, "dexcom signin", "/api/dexcom/signin", creds)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}
	return nil
}

type statelessReading struct {
	Value     *int    `json:"value"`
	Trend     *string `json:"trend"`
	Timestamp *string `json:"timestamp"`
}

type statelessSyncResponse struct {
	Readings []statelessReading `json:"readings"`
}

// LatestGlucose runs the stateless CGM sync and returns the first reading,
// which the backend orders newest first. A response with no readings array
// or malformed fields is invalid data; a well-formed but empty array
// violates the contract envelope.
func (s *SyncService) LatestGlucose(ctx context.Context, creds domain.DexcomCredentials) (*domain.GlucoseReading, error) {
	resp, err := s.postJSON(ctx, "stateless glucose sync", "/api/v1/glucose/stateless/sync", creds)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}

	var payload statelessSyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeAPI, "INVALID_DATA", "failed to decode glucose response")
	}
	if payload.Readings == nil {
		return nil, apperrors.ErrInvalidData
	}
	if len(payload.Readings) == 0 {
		return nil, apperrors.ErrInvalidResponse
	}

	first := payload.Readings[0]
	if first.Value == nil || first.Trend == nil || first.Timestamp == nil {
		return nil, apperrors.ErrInvalidData
	}
	if *first.Value < 0 {
		return nil, apperrors.ErrInvalidData
	}
	ts, err := time.Parse(time.RFC3339, *first.Timestamp)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeAPI, "INVALID_DATA", "unparseable reading timestamp")
	}

	return &domain.GlucoseReading{
		Value:     *first.Value,
		Trend:     domain.ParseTrend(*first.Trend),
		Timestamp: ts,
		Unit:      domain.UnitMgdL,
	}, nil
}

// postJSON encodes payload and issues one POST. Transport failures come
// back as NetworkError; the caller owns status handling and must close the
// response body.
func (s *SyncService) postJSON(ctx context.Context, op, path string, payload interface{}) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeAPI, "ENCODE_FAILED", "failed to encode request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &apperrors.NetworkError{Op: op, Err: err}
	}
	return resp, nil
}

// serverError maps a non-2xx response to ServerError, preferring the
// backend's {"detail": ...} body when one is present.
func serverError(resp *http.Response) *apperrors.ServerError {
	message := fmt.Sprintf("request failed with status %d", resp.StatusCode)
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Detail != "" {
		message = body.Detail
	}
	return &apperrors.ServerError{StatusCode: resp.StatusCode, Message: message}
}
