package session

import (
	"net/url"
	"strings"
)

// LaunchParams are the parameters the composer was opened with.
type LaunchParams struct {
	Description string `json:"description,omitempty"`
	SourceURL   string `json:"url,omitempty"`
	ChatID      string `json:"chat_id,omitempty"`
}

// ParseLaunchParams reads description, url and chat_id from a query string.
// A leading '?' is accepted.
func ParseLaunchParams(query string) (LaunchParams, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return LaunchParams{}, err
	}
	return FromValues(values), nil
}

func FromValues(values url.Values) LaunchParams {
	return LaunchParams{
		Description: strings.TrimSpace(values.Get("description")),
		SourceURL:   strings.TrimSpace(values.Get("url")),
		ChatID:      strings.TrimSpace(values.Get("chat_id")),
	}
}
