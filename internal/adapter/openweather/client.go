// Package openweather implements the environmental data fetcher against an
// OpenWeather-compatible provider endpoint.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"

	"github.com/trailhaven/ecowatch/internal/domain"
	"github.com/trailhaven/ecowatch/internal/observability"
)

var validate = validator.New()

// coordinates carries the validated fetch input.
type coordinates struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

// Client calls the weather provider by coordinates and normalizes the
// response into a domain.Snapshot. One network call per Fetch.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a provider client with a per-call timeout and a
// circuit breaker so one unresponsive provider cannot stall a sweep.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
		logger:     logger,
		metrics:    metrics,
	}
}

// Fetch retrieves current conditions for the given coordinates. The label
// is used only for the snapshot's display field. Non-success statuses and
// transport failures surface as FetchError{ProviderUnavailable};
// undecodable payloads as FetchError{MalformedResponse}. Any subset of
// numeric fields may be absent from the payload; absent values are
// recorded as zero.
func (c *Client) Fetch(ctx context.Context, lat, lon float64, label string) (domain.Snapshot, error) {
	if err := validate.Struct(coordinates{Lat: lat, Lon: lon}); err != nil {
		return domain.Snapshot{}, fmt.Errorf("invalid coordinates (%.4f, %.4f): %w", lat, lon, err)
	}

	params := url.Values{
		"lat":     {strconv.FormatFloat(lat, 'f', 4, 64)},
		"lon":     {strconv.FormatFloat(lon, 'f', 4, 64)},
		"units":   {"metric"},
		"exclude": {"minutely,daily"},
	}
	if c.apiKey != "" {
		params.Set("appid", c.apiKey)
	}

	c.metrics.ProviderRequests.Inc()
	start := time.Now()

	body, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.ProviderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderErrors.Inc()
		return domain.Snapshot{}, err
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		c.metrics.ProviderErrors.Inc()
		return domain.Snapshot{}, domain.NewFetchError(domain.MalformedResponse, err)
	}

	return normalize(payload, label), nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("provider status %d: %s", resp.StatusCode, body)
		}

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("provider circuit open, request rejected")
		}
		return nil, domain.NewFetchError(domain.ProviderUnavailable, err)
	}
	return result.([]byte), nil
}

// response mirrors the subset of the provider payload we consume. All
// fields are optional on the wire.
type response struct {
	Current struct {
		Temp       float64 `json:"temp"`
		Humidity   float64 `json:"humidity"`
		Pressure   float64 `json:"pressure"`
		WindSpeed  float64 `json:"wind_speed"`
		WindDeg    float64 `json:"wind_deg"`
		Visibility float64 `json:"visibility"` // meters
		UVI        float64 `json:"uvi"`
		Clouds     float64 `json:"clouds"`
		Weather    []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"current"`
	Hourly []struct {
		Pop float64 `json:"pop"` // 0..1
	} `json:"hourly"`
}

// normalize maps a provider payload onto the canonical snapshot. Unknown
// condition codes become ConditionUnknown with a generic icon; missing
// numerics stay zero.
func normalize(p response, label string) domain.Snapshot {
	var providerCond, description string
	if len(p.Current.Weather) > 0 {
		providerCond = p.Current.Weather[0].Main
		description = p.Current.Weather[0].Description
	}
	cond := domain.NormalizeCondition(providerCond)

	var precipChance float64
	if len(p.Hourly) > 0 {
		precipChance = p.Hourly[0].Pop * 100
	}

	return domain.Snapshot{
		Label:         label,
		Temperature:   p.Current.Temp,
		Humidity:      p.Current.Humidity,
		Pressure:      p.Current.Pressure,
		WindSpeed:     p.Current.WindSpeed,
		WindDirection: p.Current.WindDeg,
		Visibility:    p.Current.Visibility / 1000, // meters → km
		UVIndex:       p.Current.UVI,
		CloudCover:    p.Current.Clouds,
		PrecipChance:  precipChance,
		PrecipType:    precipTypeFor(cond),
		Condition:     cond,
		Description:   description,
		Icon:          domain.IconFor(cond),
		FetchedAt:     domain.Now().UTC(),
	}
}

func precipTypeFor(c domain.Condition) string {
	switch c {
	case domain.ConditionRain, domain.ConditionDrizzle, domain.ConditionThunderstorm:
		return "rain"
	case domain.ConditionSnow:
		return "snow"
	default:
		return ""
	}
}
