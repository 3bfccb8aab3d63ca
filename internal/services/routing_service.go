package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// RoutePlanner computes a meeting point, route and cost estimate for a set of
// pickup locations. The real implementation is an external black box.
type RoutePlanner interface {
	PlanRoute(ctx context.Context, pinCodes []string) (*models.RoutePlan, error)
}

// RoutingClient calls the external route planning service over HTTP
type RoutingClient struct {
	baseURL string
	client  *http.Client
}

// NewRoutingClient creates a new routing client
func NewRoutingClient(baseURL string, timeout time.Duration) *RoutingClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RoutingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type planRouteRequest struct {
	Locations []string `json:"locations"`
}

type planRouteResponse struct {
	MeetingPoint *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"meeting_point"`
	RoutePlan    json.RawMessage `json:"route_plan"`
	CostEstimate float64         `json:"cost_estimate"`
}

// PlanRoute posts the pickup locations to the route planner and returns its
// plan. All failures come back as ExternalServiceError so callers can treat
// them as soft.
func (c *RoutingClient) PlanRoute(ctx context.Context, pinCodes []string) (*models.RoutePlan, error) {
	if c.baseURL == "" {
		return nil, models.NewExternalServiceError("routing", fmt.Errorf("route planner URL not configured"))
	}
	if len(pinCodes) == 0 {
		return nil, models.NewValidationError("no locations to plan a route for")
	}

	body, err := json.Marshal(planRouteRequest{Locations: pinCodes})
	if err != nil {
		return nil, fmt.Errorf("failed to encode route request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/plan", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create route request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, models.NewExternalServiceError("routing", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, models.NewExternalServiceError("routing",
			fmt.Errorf("route planner returned %d: %s", resp.StatusCode, string(payload)))
	}

	var planResp planRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&planResp); err != nil {
		return nil, models.NewExternalServiceError("routing", fmt.Errorf("failed to decode route response: %w", err))
	}

	plan := &models.RoutePlan{
		RouteJSON:     string(planResp.RoutePlan),
		EstimatedCost: planResp.CostEstimate,
	}
	if planResp.MeetingPoint != nil {
		lat, lon := planResp.MeetingPoint.Lat, planResp.MeetingPoint.Lon
		plan.MeetingPointLat = &lat
		plan.MeetingPointLon = &lon
	}
	return plan, nil
}
