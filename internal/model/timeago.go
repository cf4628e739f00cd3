package model

import (
	"fmt"
	"time"
)

// TimeAgo formats the age of t relative to now for template listings.
func TimeAgo(now, t time.Time) string {
	minutes := int(now.Sub(t) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/1440)
	}
}

// SavedLabel formats the autosave status line. Saves older than an hour show
// the clock time instead of a relative age.
func SavedLabel(now, t time.Time, saved bool) string {
	if !saved {
		return "Never"
	}
	minutes := int(now.Sub(t) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	default:
		return t.Local().Format(time.Kitchen)
	}
}
