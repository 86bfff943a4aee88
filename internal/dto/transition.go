package dto

import "time"

type PaymentDTO struct {
	Method string `json:"method"`
}

type TransitionRequest struct {
	Status  string      `json:"status"`
	Payment *PaymentDTO `json:"payment"`
}

type TransitionResponse struct {
	TraceID   string        `json:"traceId"`
	Order     OrderResponse `json:"order"`
	Timestamp time.Time     `json:"timestamp"`
}

type ErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	OrderID   string    `json:"orderId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
