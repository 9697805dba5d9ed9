// Package geocode resolves free-text addresses to coordinates through the
// Google Geocoding API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/teemow/propertyinbox/internal/breaker"
	"github.com/teemow/propertyinbox/internal/instrumentation"
	"github.com/teemow/propertyinbox/internal/logging"
)

const (
	// DefaultBaseURL is the Google Maps web service root.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	defaultTimeout = 15 * time.Second

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// ErrNoResult is returned when the provider finds no match for an address.
var ErrNoResult = errors.New("geocode: no result")

// Result is a resolved coordinate pair.
type Result struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
}

// String renders the coordinates as "lat, lng".
func (r Result) String() string {
	return fmt.Sprintf("%.6f, %.6f", r.Lat, r.Lng)
}

// Geocoder resolves addresses.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

// Config configures the client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// APIError is a non-OK status reported by the Geocoding API.
type APIError struct {
	HTTPStatus int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geocode: %s (%d): %s", e.Status, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("geocode: %s (%d)", e.Status, e.HTTPStatus)
}

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Client is a Geocoding API client.
type Client struct {
	http    *resty.Client
	apiKey  string
	cb      *gobreaker.CircuitBreaker
	metrics *instrumentation.Metrics
}

// NewClient creates a Client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("geocode: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		apiKey: cfg.APIKey,
		cb:     breaker.New("geocode", isTransient, logging.WithService(logger, instrumentation.ServiceGeocode)),
	}, nil
}

// WithMetrics sets the metrics recorder.
func (c *Client) WithMetrics(m *instrumentation.Metrics) *Client {
	c.metrics = m
	return c
}

// Geocode resolves address to the first result. Japanese results are
// preferred.
func (c *Client) Geocode(ctx context.Context, address string) (Result, error) {
	if address == "" {
		return Result{}, ErrNoResult
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGeocode, instrumentation.OperationSearch)
	start := time.Now()
	res, err := breaker.Execute(c.cb, func() (Result, error) {
		return c.geocode(ctx, address)
	})
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGeocode, instrumentation.OperationSearch,
		instrumentation.StatusFor(err), time.Since(start))
	instrumentation.EndSpan(span, err)
	if err != nil {
		if errors.Is(err, ErrNoResult) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("failed to geocode address: %w", err)
	}
	return res, nil
}

func (c *Client) geocode(ctx context.Context, address string) (Result, error) {
	var body response
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"address":  address,
			"key":      c.apiKey,
			"language": "ja",
			"region":   "jp",
		}).
		SetResult(&body).
		SetError(&body).
		Get("/geocode/json")
	if err != nil {
		return Result{}, err
	}

	if resp.IsError() {
		return Result{}, &APIError{HTTPStatus: resp.StatusCode(), Status: body.Status, Message: body.ErrorMessage}
	}

	switch body.Status {
	case statusOK:
	case statusZeroResults:
		return Result{}, ErrNoResult
	default:
		return Result{}, &APIError{HTTPStatus: resp.StatusCode(), Status: body.Status, Message: body.ErrorMessage}
	}
	if len(body.Results) == 0 {
		return Result{}, ErrNoResult
	}

	first := body.Results[0]
	return Result{
		Lat:              first.Geometry.Location.Lat,
		Lng:              first.Geometry.Location.Lng,
		FormattedAddress: first.FormattedAddress,
	}, nil
}

func isTransient(err error) bool {
	if errors.Is(err, ErrNoResult) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus >= http.StatusInternalServerError ||
			apiErr.Status == "OVER_QUERY_LIMIT" || apiErr.Status == "UNKNOWN_ERROR"
	}
	return true
}
