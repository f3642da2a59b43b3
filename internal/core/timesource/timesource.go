// Package timesource fetches authoritative time from a remote service and
// builds local-clock fallbacks.
package timesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"clockwidget/internal/core/model"
)

// DefaultEndpoint is the public time service queried when none is configured.
const DefaultEndpoint = "http://worldtimeapi.org/api/ip"

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 10 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 64 << 10

var (
	// ErrTransport covers unreachable hosts, timeouts and non-success statuses.
	ErrTransport = errors.New("time service transport failure")
	// ErrFormat covers payloads that cannot be decoded into a timestamp.
	ErrFormat = errors.New("time service format failure")
)

// Source yields authoritative snapshots.
type Source interface {
	Fetch(ctx context.Context) (model.ClockSnapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (model.ClockSnapshot, error)

// Fetch calls fn.
func (fn SourceFunc) Fetch(ctx context.Context) (model.ClockSnapshot, error) {
	return fn(ctx)
}

type response struct {
	Datetime  string `json:"datetime"`
	Timezone  string `json:"timezone"`
	UTCOffset string `json:"utc_offset"`
}

// HTTPSource queries a worldtimeapi-compatible JSON endpoint.
type HTTPSource struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// NewHTTPSource creates a source for endpoint. A nil client uses
// http.DefaultClient; non-positive timeout uses DefaultTimeout.
func NewHTTPSource(endpoint string, timeout time.Duration, client *http.Client) *HTTPSource {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{endpoint: endpoint, timeout: timeout, client: client}
}

// Endpoint returns the queried URL.
func (source *HTTPSource) Endpoint() string {
	return source.endpoint
}

// Fetch performs one round-trip. Errors wrap ErrTransport or ErrFormat.
func (source *HTTPSource) Fetch(ctx context.Context) (model.ClockSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, source.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, source.endpoint, nil)
	if err != nil {
		return model.ClockSnapshot{}, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	request.Header.Set("Accept", "application/json")

	resp, err := source.client.Do(request)
	if err != nil {
		return model.ClockSnapshot{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.ClockSnapshot{}, fmt.Errorf("%w: unexpected status %s", ErrTransport, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return model.ClockSnapshot{}, fmt.Errorf("%w: read body: %v", ErrFormat, err)
	}
	return Parse(body)
}

// Parse decodes a time service payload into an authoritative snapshot.
func Parse(body []byte) (model.ClockSnapshot, error) {
	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.ClockSnapshot{}, fmt.Errorf("%w: decode json: %v", ErrFormat, err)
	}
	if payload.Datetime == "" {
		return model.ClockSnapshot{}, fmt.Errorf("%w: missing datetime", ErrFormat)
	}

	current, err := time.Parse(time.RFC3339Nano, payload.Datetime)
	if err != nil {
		return model.ClockSnapshot{}, fmt.Errorf("%w: parse datetime %q: %v", ErrFormat, payload.Datetime, err)
	}

	zone := payload.Timezone
	if zone == "" {
		zone = model.DefaultZoneLabel
	}
	offset := payload.UTCOffset
	if offset == "" {
		_, seconds := current.Zone()
		offset = FormatOffset(seconds)
	}

	return model.ClockSnapshot{
		CurrentTime:     current,
		ZoneLabel:       zone,
		UTCOffset:       offset,
		IsAuthoritative: true,
	}, nil
}

// LocalFallback describes the machine's local clock.
func LocalFallback() model.ClockSnapshot {
	return LocalFallbackAt(time.Now())
}

// LocalFallbackAt describes now in the local zone.
func LocalFallbackAt(now time.Time) model.ClockSnapshot {
	local := now.Local()
	name, seconds := local.Zone()
	if name == "" {
		name = model.DefaultZoneLabel
	}
	return model.ClockSnapshot{
		CurrentTime:     local,
		ZoneLabel:       name,
		UTCOffset:       FormatOffset(seconds),
		IsAuthoritative: false,
	}
}

// FormatOffset renders an offset in seconds east of UTC as ±HH:mm.
func FormatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	minutes := seconds / 60
	return fmt.Sprintf("%c%02d:%02d", sign, minutes/60, minutes%60)
}
