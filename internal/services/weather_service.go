package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// WeatherReport is a condensed view of current conditions at a location
type WeatherReport struct {
	Location    string  `json:"location"`
	Description string  `json:"description"`
	TempC       float64 `json:"tempC"`
	FeelsLikeC  float64 `json:"feelsLikeC"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
}

// WeatherService fetches current weather from OpenWeather
type WeatherService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewWeatherService creates a new weather service
func NewWeatherService(apiKey string) *WeatherService {
	return &WeatherService{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// openWeatherResponse mirrors the subset of the API response we use
type openWeatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// CurrentByPinCode fetches current weather for an Indian postal code
func (s *WeatherService) CurrentByPinCode(ctx context.Context, pinCode string) (*WeatherReport, error) {
	if s.apiKey == "" {
		return nil, models.NewExternalServiceError("weather", fmt.Errorf("no API key configured"))
	}

	params := url.Values{}
	params.Set("zip", pinCode+",IN")
	params.Set("appid", s.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/weather?"+params.Encode(), nil)
	if err != nil {
		return nil, models.NewExternalServiceError("weather", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, models.NewExternalServiceError("weather", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewExternalServiceError("weather", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, models.NewExternalServiceError("weather", fmt.Errorf("failed to decode response: %w", err))
	}

	report := &WeatherReport{
		Location:   payload.Name,
		TempC:      payload.Main.Temp,
		FeelsLikeC: payload.Main.FeelsLike,
		Humidity:   payload.Main.Humidity,
		WindSpeed:  payload.Wind.Speed,
	}
	if len(payload.Weather) > 0 {
		report.Description = payload.Weather[0].Description
	}
	return report, nil
}
