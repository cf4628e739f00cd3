package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const maxResponseBody = 1 << 20

// HTTPDeliverer posts a JSON payload to a relay endpoint. Success is any 2xx
// status with a JSON body.
type HTTPDeliverer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPDeliverer(endpoint string, timeout time.Duration) *HTTPDeliverer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDeliverer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	Message   string `json:"message"`
	ChatID    string `json:"chat_id,omitempty"`
	Image     string `json:"image,omitempty"`
	ImageName string `json:"imageName,omitempty"`
	ImageType string `json:"imageType,omitempty"`
}

func newPayload(req Request) payload {
	p := payload{Message: req.Message, ChatID: req.ChatID}
	if req.Image != nil {
		p.Image = req.Image.Base64()
		p.ImageName = req.Image.Name
		p.ImageType = req.Image.MIMEType
	}
	return p
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(newPayload(req))
	if err != nil {
		return Response{}, &DeliveryError{Err: fmt.Errorf("encoding payload: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, &DeliveryError{Err: err}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)

	log := deliveryLogger.With().Str("request_id", requestID).Str("endpoint", d.endpoint).Logger()
	log.Info().Bool("image", req.Image != nil).Int("bytes", len(body)).Msg("Delivering post")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		log.Error().Err(err).Msg("Delivery request failed")
		return Response{}, &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Response{}, &DeliveryError{Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).Msg("Delivery rejected")
		return Response{}, &DeliveryError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if !json.Valid(respBody) {
		log.Error().Int("status", resp.StatusCode).Msg("Delivery response is not JSON")
		return Response{}, &DeliveryError{
			Status: resp.StatusCode,
			Body:   string(respBody),
			Err:    errors.New("response body is not valid JSON"),
		}
	}

	log.Info().Int("status", resp.StatusCode).Msg("Post delivered")
	return Response{Status: resp.StatusCode, Body: respBody}, nil
}
