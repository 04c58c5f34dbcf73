package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// OrderPlacedHandler sends the order confirmation email.
type OrderPlacedHandler struct {
	Email  common.EmailSender
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h *OrderPlacedHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p OrderPlaced
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	log := h.Logger.With().Str("order_id", p.OrderID).Logger()
	if strings.TrimSpace(p.Email) == "" {
		log.Info().Msg("order placed without contact email; confirmation skipped")
		return nil
	}
	subject, body := confirmation(p)
	if err := h.Email.Send(p.Email, subject, body); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	log.Info().Str("total", p.Total.String()).Msg("order confirmation sent")
	return nil
}

func confirmation(p OrderPlaced) (subject, body string) {
	subject = "Order " + p.OrderID + " confirmed"
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(p.FullName))
	fmt.Fprintf(&b, "<p>We received your order of %d item(s).</p>", p.ItemCount)
	if p.CouponCode != "" {
		fmt.Fprintf(&b, "<p>Coupon %s saved you %s.</p>", html.EscapeString(p.CouponCode), p.Discount.Display())
	}
	fmt.Fprintf(&b, "<p>Total charged: <strong>%s</strong></p>", p.Total.Display())
	return subject, b.String()
}

// NewServeMux routes every task type this service handles, counting outcomes.
func NewServeMux(orderPlaced asynq.Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(countOutcome)
	mux.Handle(TypeOrderPlaced, orderPlaced)
	return mux
}

func countOutcome(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		err := next.ProcessTask(ctx, t)
		status := "ok"
		if err != nil {
			status = "error"
		}
		QueueProcessedTotal.WithLabelValues(t.Type(), status).Inc()
		return err
	})
}
