package dto

import "time"

type ViewResponse struct {
	View   string          `json:"view"`
	Orders []OrderResponse `json:"orders"`
}

// ScreenSnapshot is one server-sent event of a mounted screen.
type ScreenSnapshot struct {
	ScreenID string          `json:"screenId"`
	View     string          `json:"view"`
	Orders   []OrderResponse `json:"orders"`
}

type EarningsResponse struct {
	ActorID         string    `json:"actorId"`
	Role            string    `json:"role"`
	CompletedOrders int       `json:"completedOrders"`
	Total           float64   `json:"total"`
	RefreshedAt     time.Time `json:"refreshedAt"`
}
