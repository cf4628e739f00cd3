package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/debemdeboas/postdesk/internal/config"
	"github.com/debemdeboas/postdesk/internal/delivery"
)

func newDeliverer(cfg config.DeliveryConfig) (delivery.Deliverer, error) {
	timeout := config.Seconds(cfg.TimeoutSeconds)

	switch cfg.Mode {
	case "http":
		return delivery.NewHTTPDeliverer(cfg.Endpoint, timeout), nil

	case "telegram":
		var chatID int64
		if cfg.Telegram.DefaultChatID != "" {
			id, err := strconv.ParseInt(cfg.Telegram.DefaultChatID, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid default chat id: %w", err)
			}
			chatID = id
		}
		if cfg.Telegram.Token == "" {
			return nil, fmt.Errorf("telegram delivery needs %s", config.EnvTelegramToken)
		}
		return delivery.NewTelegramDeliverer(cfg.Telegram.Token, cfg.Telegram.APIEndpoint, chatID, &http.Client{Timeout: timeout})

	default:
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.Mode)
	}
}
