package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-storefront/internal/money"
)

// TypeOrderPlaced is the task sent after an order commits.
const TypeOrderPlaced = "order:placed"

// OrderPlaced is the payload of TypeOrderPlaced.
type OrderPlaced struct {
	OrderID    string       `json:"orderId"`
	UserID     string       `json:"userId"`
	Email      string       `json:"email,omitempty"`
	FullName   string       `json:"fullName"`
	ItemCount  int          `json:"itemCount"`
	Total      money.Amount `json:"total"`
	Discount   money.Amount `json:"discount"`
	CouponCode string       `json:"couponCode,omitempty"`
	PlacedAt   time.Time    `json:"placedAt"`
}

// NewOrderPlacedTask encodes p. The order id doubles as the task id so a
// retried publish never sends two confirmations.
func NewOrderPlacedTask(p OrderPlaced) (*asynq.Task, error) {
	if p.OrderID == "" {
		return nil, fmt.Errorf("queue: order id is required")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderPlaced, raw,
		asynq.TaskID(TypeOrderPlaced+":"+p.OrderID),
		asynq.MaxRetry(10),
		asynq.Retention(24*time.Hour),
	), nil
}
