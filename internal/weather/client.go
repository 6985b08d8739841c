// Package weather fetches hourly observations from the Open-Meteo forecast API
// and normalizes them into the fixed-shape feature window consumed by the
// rainfall classifier.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"climaroute/internal/config"
	"climaroute/internal/external"
	"climaroute/internal/types"
)

// hourlyFields is the fixed set of hourly variables requested from the
// provider. The order here is a query-string detail only; column order of the
// model input is enforced by types.NewFeatureVector.
const hourlyFields = "temperature_2m,relative_humidity_2m,dew_point_2m,surface_pressure,cloud_cover,wind_speed_10m,weather_code"

// currentFields is the fixed set of variables requested for the latest instant.
const currentFields = "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code"

// hourlyTimeLayout is the ISO-8601 minute-precision layout Open-Meteo uses for
// hourly timestamps. With timezone=auto these are local wall-clock strings for
// the requested coordinate; the response's utc_offset_seconds restores the
// absolute instant.
const hourlyTimeLayout = "2006-01-02T15:04"

// Report is a decoded provider response: the raw hourly series plus the flat
// current-conditions block.
type Report struct {
	Hourly  []types.Observation
	Current types.CurrentConditions
}

// forecastResponse mirrors the provider's JSON envelope. Hourly data arrives
// as parallel arrays keyed by field name.
type forecastResponse struct {
	UTCOffsetSeconds int           `json:"utc_offset_seconds"`
	Hourly           *hourlyBlock  `json:"hourly"`
	Current          *currentBlock `json:"current"`
}

type hourlyBlock struct {
	Time               []string  `json:"time"`
	Temperature2M      []float64 `json:"temperature_2m"`
	RelativeHumidity2M []float64 `json:"relative_humidity_2m"`
	DewPoint2M         []float64 `json:"dew_point_2m"`
	SurfacePressure    []float64 `json:"surface_pressure"`
	CloudCover         []float64 `json:"cloud_cover"`
	WindSpeed10M       []float64 `json:"wind_speed_10m"`
	WeatherCode        []int     `json:"weather_code"`
}

type currentBlock struct {
	Temperature2M      float64 `json:"temperature_2m"`
	RelativeHumidity2M float64 `json:"relative_humidity_2m"`
	WindSpeed10M       float64 `json:"wind_speed_10m"`
	WeatherCode        int     `json:"weather_code"`
}

// Client fetches weather reports for a coordinate through the resilient
// BaseClient. It is safe for concurrent use.
type Client struct {
	base    *external.BaseClient
	baseURL string
	cfg     config.WeatherConfig
	logger  *slog.Logger
}

// NewClient creates a weather provider client. The httpClient timeout should
// be set to the configured fetch timeout so a slow provider cannot hang
// request handling.
func NewClient(httpClient *http.Client, cfg config.WeatherConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:    external.NewBaseClient(httpClient, "open-meteo", external.NoRetryPolicy(), cfg.UserAgent),
		baseURL: cfg.BaseURL,
		cfg:     cfg,
		logger:  logger,
	}
}

// Fetch retrieves hourly and current weather for the given coordinate.
// A response without an hourly block is a fetch failure: the pipeline cannot
// build a feature window from nothing.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (*Report, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("hourly", hourlyFields)
	q.Set("current", currentFields)
	q.Set("past_days", strconv.Itoa(c.cfg.PastDays))
	q.Set("forecast_days", strconv.Itoa(c.cfg.ForecastDays))
	q.Set("timezone", "auto")

	reqURL := c.baseURL + "/v1/forecast?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create weather request",
			err,
		)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "weather provider error",
			"status_code", resp.StatusCode,
			"lat", lat,
			"lon", lon,
			"response_body", string(body),
		)
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather provider returned %d", resp.StatusCode),
			nil,
		)
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			"failed to decode weather response",
			err,
		)
	}

	if payload.Hourly == nil || len(payload.Hourly.Time) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			"weather response missing hourly data",
			nil,
		)
	}

	report := &Report{
		Hourly: decodeHourly(payload.Hourly, payload.UTCOffsetSeconds, c.logger),
	}
	if payload.Current != nil {
		report.Current = types.CurrentConditions{
			Temperature: payload.Current.Temperature2M,
			Humidity:    payload.Current.RelativeHumidity2M,
			WindSpeed:   payload.Current.WindSpeed10M,
			WeatherCode: payload.Current.WeatherCode,
		}
	}

	return report, nil
}

// decodeHourly zips the provider's parallel arrays into observations.
// Rows with an unparseable timestamp are skipped; value arrays shorter than
// the time array truncate the series at the shortest length.
//
// Timestamps are parsed in the provider's reported zone. The resulting
// Observation.Time is the correct absolute instant for comparison against a
// UTC clock, while Hour() and Month() still read the location's wall clock,
// which is what the classifier was trained on.
func decodeHourly(h *hourlyBlock, utcOffsetSeconds int, logger *slog.Logger) []types.Observation {
	loc := time.UTC
	if utcOffsetSeconds != 0 {
		loc = time.FixedZone("provider", utcOffsetSeconds)
	}
	n := len(h.Time)
	for _, l := range []int{
		len(h.Temperature2M), len(h.RelativeHumidity2M), len(h.DewPoint2M),
		len(h.SurfacePressure), len(h.CloudCover), len(h.WindSpeed10M),
	} {
		if l < n {
			n = l
		}
	}

	obs := make([]types.Observation, 0, n)
	for i := 0; i < n; i++ {
		ts, err := time.ParseInLocation(hourlyTimeLayout, h.Time[i], loc)
		if err != nil {
			logger.Warn("skipping hourly row with invalid timestamp", "value", h.Time[i])
			continue
		}
		o := types.Observation{
			Time:        ts,
			Temperature: h.Temperature2M[i],
			Humidity:    h.RelativeHumidity2M[i],
			DewPoint:    h.DewPoint2M[i],
			Pressure:    h.SurfacePressure[i],
			CloudCover:  h.CloudCover[i],
			WindSpeed:   h.WindSpeed10M[i],
		}
		if i < len(h.WeatherCode) {
			o.WeatherCode = h.WeatherCode[i]
		}
		obs = append(obs, o)
	}
	return obs
}
