package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects photo captions longer than this many UTF-16 code units.
const maxCaptionLength = 1024

// captionLength counts s the way the Bot API does. Emoji outside the BMP
// take two units.
func captionLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// TelegramDeliverer talks to the Bot API directly, without a relay.
type TelegramDeliverer struct {
	bot           *tgbotapi.BotAPI
	defaultChatID int64
}

// NewTelegramDeliverer authenticates with the bot token. An empty endpoint
// means the public Bot API.
func NewTelegramDeliverer(token, endpoint string, defaultChatID int64, client *http.Client) (*TelegramDeliverer, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}

	deliveryLogger.Info().Str("bot", bot.Self.UserName).Msg("Telegram bot authorized")
	return &TelegramDeliverer{bot: bot, defaultChatID: defaultChatID}, nil
}

func (d *TelegramDeliverer) chatID(req Request) (int64, error) {
	if req.ChatID == "" {
		if d.defaultChatID == 0 {
			return 0, errNoDestination
		}
		return d.defaultChatID, nil
	}
	id, err := strconv.ParseInt(req.ChatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", req.ChatID, err)
	}
	return id, nil
}

// messages builds the Bot API calls for req: a captioned photo, or a photo
// followed by the text when the caption would be too long.
func messages(chatID int64, req Request) []tgbotapi.Chattable {
	if req.Image == nil {
		return []tgbotapi.Chattable{tgbotapi.NewMessage(chatID, req.Message)}
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: req.Image.Name, Bytes: req.Image.Data})
	if captionLength(req.Message) <= maxCaptionLength {
		photo.Caption = req.Message
		return []tgbotapi.Chattable{photo}
	}
	return []tgbotapi.Chattable{photo, tgbotapi.NewMessage(chatID, req.Message)}
}

func (d *TelegramDeliverer) Deliver(ctx context.Context, req Request) (Response, error) {
	chatID, err := d.chatID(req)
	if err != nil {
		return Response{}, &DeliveryError{Err: err}
	}

	var sent []int
	for _, c := range messages(chatID, req) {
		msg, err := d.send(ctx, c)
		if err != nil {
			deliveryLogger.Error().Err(err).Int64("chat_id", chatID).Msg("Telegram delivery failed")
			var apiErr *tgbotapi.Error
			if errors.As(err, &apiErr) {
				return Response{}, &DeliveryError{Status: apiErr.Code, Body: apiErr.Message}
			}
			return Response{}, &DeliveryError{Err: err}
		}
		sent = append(sent, msg.MessageID)
	}

	body, _ := json.Marshal(map[string]any{"ok": true, "chat_id": chatID, "message_ids": sent})
	deliveryLogger.Info().Int64("chat_id", chatID).Ints("message_ids", sent).Msg("Post delivered to telegram")
	return Response{Status: http.StatusOK, Body: body}, nil
}

// send runs one Bot API call with ctx attached to its HTTP requests, so a
// cancelled ctx aborts the request instead of leaving it in flight.
func (d *TelegramDeliverer) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	bot := *d.bot
	bot.Client = contextClient{ctx: ctx, next: d.bot.Client}
	return bot.Send(c)
}

// contextClient binds every request to one context. The Bot API client
// has no context parameter of its own.
type contextClient struct {
	ctx  context.Context
	next tgbotapi.HTTPClient
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.next.Do(req.WithContext(c.ctx))
}
