package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scriptreview/internal/analyzer"
	"scriptreview/internal/logging"
	"scriptreview/internal/report"
)

// DocketSearcher finds court records for a query.
type DocketSearcher interface {
	SearchDockets(ctx context.Context, query string, limit int) ([]report.Docket, error)
}

// DefaultCourtListenerURL is the public CourtListener API root.
const DefaultCourtListenerURL = "https://www.courtlistener.com"

const courtListenerName = "courtlistener"

// CourtListener searches the RECAP archive through the CourtListener REST
// API.
type CourtListener struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// CourtListenerOption configures a CourtListener client.
type CourtListenerOption func(*CourtListener)

// WithCourtListenerURL points the client at another server.
func WithCourtListenerURL(u string) CourtListenerOption {
	return func(c *CourtListener) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithCourtListenerHTTPClient overrides the default HTTP client.
func WithCourtListenerHTTPClient(hc *http.Client) CourtListenerOption {
	return func(c *CourtListener) { c.httpClient = hc }
}

// NewCourtListener returns a client. token may be empty for anonymous,
// rate-limited access.
func NewCourtListener(token string, opts ...CourtListenerOption) *CourtListener {
	c := &CourtListener{
		baseURL:    DefaultCourtListenerURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.New("docket"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type courtListenerResponse struct {
	Results []struct {
		CaseName     string `json:"caseName"`
		Court        string `json:"court"`
		DocketNumber string `json:"docketNumber"`
		DateFiled    string `json:"dateFiled"`
		AbsoluteURL  string `json:"absolute_url"`
	} `json:"results"`
}

// SearchDockets runs a RECAP search and returns at most limit dockets.
func (c *CourtListener) SearchDockets(ctx context.Context, query string, limit int) ([]report.Docket, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "r")
	u := c.baseURL + "/api/rest/v4/search/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", courtListenerName, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	c.logger.DebugContext(ctx, "docket search", "query", query)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", courtListenerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return nil, &analyzer.APIError{Analyzer: courtListenerName, StatusCode: resp.StatusCode, Message: msg}
	}

	var out courtListenerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", courtListenerName, err)
	}

	dockets := make([]report.Docket, 0, len(out.Results))
	for _, r := range out.Results {
		if limit > 0 && len(dockets) >= limit {
			break
		}
		d := report.Docket{
			CaseName:     r.CaseName,
			Court:        r.Court,
			DocketNumber: r.DocketNumber,
			DateFiled:    r.DateFiled,
		}
		if r.AbsoluteURL != "" {
			d.URL = c.baseURL + r.AbsoluteURL
		}
		dockets = append(dockets, d)
	}
	c.logger.DebugContext(ctx, "docket search done", "query", query, "results", len(dockets))
	return dockets, nil
}

var _ DocketSearcher = (*CourtListener)(nil)
