// Package delivery sends a rendered artifact, with an optional image, to
// its destination. Each call is a single attempt.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/debemdeboas/postdesk/internal/model"
	"github.com/rs/zerolog"
)

var deliveryLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	deliveryLogger = l
}

type Request struct {
	Message string
	// ChatID overrides the deliverer's default destination when set.
	ChatID string
	Image  *Image
}

type Response struct {
	Status int
	Body   json.RawMessage
}

type Deliverer interface {
	Deliver(ctx context.Context, req Request) (Response, error)
}

// DeliveryError describes a failed attempt. It matches model.ErrDeliveryFailed.
type DeliveryError struct {
	Status int
	Body   string
	Err    error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("delivery failed with status %d: %v", e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("delivery failed: %v", e.Err)
	default:
		return fmt.Sprintf("delivery failed with status %d: %s", e.Status, e.Body)
	}
}

func (e *DeliveryError) Unwrap() []error {
	if e.Err == nil {
		return []error{model.ErrDeliveryFailed}
	}
	return []error{model.ErrDeliveryFailed, e.Err}
}

var errNoDestination = errors.New("no chat id configured")
