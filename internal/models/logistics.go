package models

import "time"

// RoutePlan is the payload returned by the external route planning service
type RoutePlan struct {
	MeetingPointLat *float64 `json:"meetingPointLat,omitempty"`
	MeetingPointLon *float64 `json:"meetingPointLon,omitempty"`
	RouteJSON       string   `json:"routeJson"`
	EstimatedCost   float64  `json:"estimatedCost"`
}

// LogisticsRecord holds the computed meeting point, route and cost for a
// closed deal. Created at most once per accepted offer.
type LogisticsRecord struct {
	ID              string    `json:"id" db:"id"`
	OfferID         string    `json:"offerId" db:"offer_id"`
	GroupID         string    `json:"groupId" db:"group_id"`
	MeetingPointLat *float64  `json:"meetingPointLat,omitempty" db:"meeting_point_lat"`
	MeetingPointLon *float64  `json:"meetingPointLon,omitempty" db:"meeting_point_lon"`
	RouteJSON       string    `json:"routeJson" db:"optimal_route_json"`
	EstimatedCost   float64   `json:"estimatedCost" db:"estimated_costs"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}
