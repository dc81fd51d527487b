// Package pvwatts provides integration with the NREL PVWatts v8 API for
// annual production estimates.
package pvwatts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/chrissnell/roofwatts/internal/log"
	"github.com/chrissnell/roofwatts/internal/yield"
)

const (
	// DefaultBaseURL is the public PVWatts v8 endpoint.
	DefaultBaseURL = "https://developer.nrel.gov/api/pvwatts/v8.json"

	// DefaultTimeout bounds each API call. A timeout surfaces as an
	// ordinary per-segment lookup failure.
	DefaultTimeout = 30 * time.Second

	// Fixed roof-mounted rack and standard module class. The capacity
	// math upstream assumes these, so they are not configurable.
	arrayTypeFixedRoofMount = 1
	moduleTypeStandard      = 1
)

// Client queries PVWatts for one segment at a time.
type Client struct {
	apiKey  string
	baseURL string
	client  http.Client
}

// NewClient validates the API key and builds a client. An empty baseURL or
// zero timeout take the package defaults.
func NewClient(apiKey, baseURL string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("PVWatts API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  http.Client{Timeout: timeout},
	}, nil
}

// Name implements yield.Estimator.
func (c *Client) Name() string {
	return "pvwatts"
}

type apiResponse struct {
	Errors  []string    `json:"errors"`
	Outputs *apiOutputs `json:"outputs"`
}

type apiOutputs struct {
	ACAnnual *float64 `json:"ac_annual"`
}

// EstimateAnnualKWh implements yield.Estimator against PVWatts v8.
func (c *Client) EstimateAnnualKWh(ctx context.Context, req yield.Request) (float64, error) {
	v := url.Values{}
	v.Set("api_key", c.apiKey)
	v.Set("lat", formatFloat(req.Latitude))
	v.Set("lon", formatFloat(req.Longitude))
	v.Set("system_capacity", formatFloat(round3(req.SystemCapacityKW)))
	v.Set("azimuth", formatFloat(req.AzimuthDeg))
	v.Set("tilt", formatFloat(req.TiltDeg))
	v.Set("array_type", strconv.Itoa(arrayTypeFixedRoofMount))
	v.Set("module_type", strconv.Itoa(moduleTypeStandard))
	v.Set("losses", formatFloat(req.SystemLossesPct))

	reqURL := c.baseURL + "?" + v.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("error creating PVWatts API HTTP request: %v", err)
	}

	log.Debugf("Making PVWatts request: capacity=%.3f kW tilt=%.1f azimuth=%.1f at (%.4f, %.4f)",
		req.SystemCapacityKW, req.TiltDeg, req.AzimuthDeg, req.Latitude, req.Longitude)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("error making request to PVWatts: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("error reading PVWatts response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("PVWatts returned status %s: %s", resp.Status, excerpt(bodyBytes))
	}

	response := &apiResponse{}
	if err := json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(response); err != nil {
		return 0, fmt.Errorf("unable to decode PVWatts response: %v", err)
	}

	if len(response.Errors) > 0 {
		return 0, fmt.Errorf("PVWatts API error: %v", response.Errors)
	}
	if response.Outputs == nil || response.Outputs.ACAnnual == nil {
		return 0, fmt.Errorf("PVWatts response missing outputs.ac_annual")
	}

	return *response.Outputs.ACAnnual, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// excerpt trims an error body down to something log-friendly.
func excerpt(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
