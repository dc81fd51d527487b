package pvwatts

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/chrissnell/roofwatts/internal/yield"
)

var testRequest = yield.Request{
	Latitude:         47.6062,
	Longitude:        -122.3321,
	SystemCapacityKW: 16.52,
	TiltDeg:          30,
	AzimuthDeg:       180,
	SystemLossesPct:  14,
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient("", "", 0); err == nil {
		t.Fatal("NewClient with empty API key did not return an error")
	}
}

func TestEstimateAnnualKWh(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":[],"outputs":{"ac_annual":21866.4}}`))
	}))
	defer srv.Close()

	c, err := NewClient("TESTKEY", srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.EstimateAnnualKWh(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("EstimateAnnualKWh: %v", err)
	}
	if math.Abs(got-21866.4) > 1e-9 {
		t.Errorf("annual kWh = %v, want 21866.4", got)
	}

	wantParams := map[string]string{
		"api_key":         "TESTKEY",
		"system_capacity": "16.52",
		"tilt":            "30",
		"azimuth":         "180",
		"losses":          "14",
		"array_type":      "1",
		"module_type":     "1",
	}
	for k, want := range wantParams {
		if gotQuery[k] != want {
			t.Errorf("query param %s = %q, want %q", k, gotQuery[k], want)
		}
	}
	if lat, _ := strconv.ParseFloat(gotQuery["lat"], 64); math.Abs(lat-testRequest.Latitude) > 1e-9 {
		t.Errorf("query param lat = %q, want %v", gotQuery["lat"], testRequest.Latitude)
	}
}

func TestEstimateAnnualKWhCapacityRounding(t *testing.T) {
	var gotCapacity string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCapacity = r.URL.Query().Get("system_capacity")
		w.Write([]byte(`{"outputs":{"ac_annual":1}}`))
	}))
	defer srv.Close()

	c, _ := NewClient("TESTKEY", srv.URL, time.Second)
	req := testRequest
	req.SystemCapacityKW = 16.523456
	if _, err := c.EstimateAnnualKWh(context.Background(), req); err != nil {
		t.Fatalf("EstimateAnnualKWh: %v", err)
	}
	if gotCapacity != "16.523" {
		t.Errorf("system_capacity = %q, want %q", gotCapacity, "16.523")
	}
}

func TestEstimateAnnualKWhFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "API reports errors",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"errors":["system_capacity above the maximum"],"outputs":null}`))
			},
		},
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "API_KEY_INVALID", http.StatusForbidden)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"outputs": not-json`))
			},
		},
		{
			name: "missing ac_annual",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"outputs":{"solrad_annual":5.1}}`))
			},
		},
		{
			name: "null outputs",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"outputs":null}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c, _ := NewClient("TESTKEY", srv.URL, time.Second)
			if _, err := c.EstimateAnnualKWh(context.Background(), testRequest); err == nil {
				t.Error("EstimateAnnualKWh did not return an error")
			}
		})
	}
}

func TestEstimateAnnualKWhContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"outputs":{"ac_annual":1}}`))
	}))
	defer srv.Close()

	c, _ := NewClient("TESTKEY", srv.URL, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.EstimateAnnualKWh(ctx, testRequest); err == nil {
		t.Error("EstimateAnnualKWh with cancelled context did not return an error")
	}
}
