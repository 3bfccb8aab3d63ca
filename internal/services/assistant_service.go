package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"google.golang.org/genai"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// marketPrices holds indicative mandi prices in rupees per kg, used to
// ground the assistant when the query mentions a known crop.
var marketPrices = map[string]float64{
	"wheat":     24.50,
	"rice":      32.00,
	"onion":     18.75,
	"potato":    14.20,
	"tomato":    22.00,
	"maize":     19.80,
	"soybean":   45.00,
	"cotton":    62.50,
	"sugarcane": 3.40,
	"mustard":   55.00,
}

const assistantSystemPrompt = `You are an agricultural assistant for Indian farmers.
Answer briefly and practically, in plain language a farmer can act on.
When context about local weather or market prices is provided, base your
answer on it instead of guessing. If you do not know, say so.`

// AssistantService answers farming questions using Gemini, grounded with
// local weather and market-price context when available.
type AssistantService struct {
	client    *genai.Client
	chatModel string
	weather   *WeatherService
}

// NewAssistantService creates a new assistant service
func NewAssistantService(apiKey, chatModel string, weather *WeatherService) (*AssistantService, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &AssistantService{
		client:    client,
		chatModel: chatModel,
		weather:   weather,
	}, nil
}

// Answer responds to a free-text query. The caller's pin code, when known,
// lets the assistant pull in local weather.
func (s *AssistantService) Answer(ctx context.Context, query, pinCode string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", models.NewValidationError("query must not be empty")
	}

	contextBlock := s.buildContext(ctx, query, pinCode)

	prompt := query
	if contextBlock != "" {
		prompt = contextBlock + "\n\nQuestion: " + query
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(assistantSystemPrompt, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.chatModel, contents, config)
	if err != nil {
		return "", models.NewExternalServiceError("assistant", err)
	}

	answer := resp.Text()
	if answer == "" {
		return "", models.NewExternalServiceError("assistant", fmt.Errorf("empty response"))
	}
	return answer, nil
}

// DiagnoseCrop analyzes a crop photo for visible disease or pest damage
func (s *AssistantService) DiagnoseCrop(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", models.NewValidationError("image must not be empty")
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText("Identify the crop and any visible disease, pest damage or " +
			"nutrient deficiency in this photo. Suggest treatment a smallholder farmer can apply."),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(assistantSystemPrompt, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.chatModel, contents, config)
	if err != nil {
		return "", models.NewExternalServiceError("assistant", err)
	}

	answer := resp.Text()
	if answer == "" {
		return "", models.NewExternalServiceError("assistant", fmt.Errorf("empty response"))
	}
	return answer, nil
}

// buildContext assembles grounding text for the prompt. Lookups are best
// effort; a failed weather call just means a less informed answer.
func (s *AssistantService) buildContext(ctx context.Context, query, pinCode string) string {
	var sections []string

	if s.weather != nil && pinCode != "" && mentionsWeather(query) {
		report, err := s.weather.CurrentByPinCode(ctx, pinCode)
		if err != nil {
			log.Printf("Warning: weather lookup failed for pin %s: %v", pinCode, err)
		} else {
			sections = append(sections, fmt.Sprintf(
				"Current weather near %s: %s, %.1f°C (feels like %.1f°C), humidity %d%%, wind %.1f m/s.",
				report.Location, report.Description, report.TempC,
				report.FeelsLikeC, report.Humidity, report.WindSpeed))
		}
	}

	if prices := matchedPrices(query); len(prices) > 0 {
		sections = append(sections, "Indicative market prices (₹/kg): "+strings.Join(prices, ", ")+".")
	}

	return strings.Join(sections, "\n")
}

func mentionsWeather(query string) bool {
	q := strings.ToLower(query)
	for _, word := range []string{"weather", "rain", "temperature", "humidity", "irrigat", "sow", "harvest", "spray"} {
		if strings.Contains(q, word) {
			return true
		}
	}
	return false
}

func matchedPrices(query string) []string {
	q := strings.ToLower(query)
	var matches []string
	for crop, price := range marketPrices {
		if strings.Contains(q, crop) {
			matches = append(matches, fmt.Sprintf("%s %.2f", crop, price))
		}
	}
	sort.Strings(matches)
	return matches
}
