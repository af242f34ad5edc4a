package healthsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/domain"
)

// RESTProvider talks to the phone-side health exporter over its local REST
// API. It is the production adapter behind the Provider interface.
type RESTProvider struct {
	baseURL string
	http    *http.Client
}

// NewRESTProvider builds an adapter for the exporter at baseURL.
func NewRESTProvider(baseURL string, timeout time.Duration) *RESTProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RESTProvider{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type authorizeRequest struct {
	Types []SampleType `json:"types"`
}

type authorizationStatusResponse struct {
	Status AuthorizationStatus `json:"status"`
}

type samplesResponse struct {
	Samples []Sample `json:"samples"`
}

// RequestAuthorization issues one batched grant request. A 503 from the
// exporter means the device has no health store and maps to ErrUnavailable.
func (p *RESTProvider) RequestAuthorization(ctx context.Context, types []SampleType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(authorizeRequest{Types: types})
	if err != nil {
		return err
	}
	reqURL := fmt.Sprintf("%s/v1/authorize", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request authorization: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return ErrUnavailable
	default:
		return fmt.Errorf("request authorization: status %d", resp.StatusCode)
	}
}

// AuthorizationStatus fetches the current grant state for one sample type.
func (p *RESTProvider) AuthorizationStatus(ctx context.Context, t SampleType) (AuthorizationStatus, error) {
	if err := ctx.Err(); err != nil {
		return StatusNotDetermined, err
	}
	reqURL := fmt.Sprintf("%s/v1/authorization/%s", p.baseURL, t)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return StatusNotDetermined, err
	}
	resp, err := p.http.Do(httpReq)
	if err != nil {
		return StatusNotDetermined, fmt.Errorf("authorization status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return StatusNotDetermined, ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return StatusNotDetermined, fmt.Errorf("authorization status: status %d", resp.StatusCode)
	}

	var sr authorizationStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return StatusNotDetermined, err
	}
	return sr.Status, nil
}

// Query fetches samples of one type inside the range. Start and end travel
// as RFC 3339 query parameters.
func (p *RESTProvider) Query(ctx context.Context, t SampleType, r domain.DateRange) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("start", r.Start.Format(time.RFC3339))
	q.Set("end", r.End.Format(time.RFC3339))
	reqURL := fmt.Sprintf("%s/v1/samples/%s?%s", p.baseURL, t, q.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query %s: status %d", t, resp.StatusCode)
	}

	var sr samplesResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}
	return sr.Samples, nil
}
