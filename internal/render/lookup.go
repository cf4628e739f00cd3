package render

import "strings"

// emojiTable maps a selectable value to its marker. Matching ignores case
// and surrounding space; anything else gets the fallback.
type emojiTable struct {
	values   map[string]string
	fallback string
}

func (e emojiTable) lookup(v string) string {
	if m, ok := e.values[strings.ToLower(strings.TrimSpace(v))]; ok {
		return m
	}
	return e.fallback
}

var (
	listingStatusEmoji = emojiTable{
		values: map[string]string{
			"for sale": "🏠",
			"for rent": "🔑",
			"sold":     "✅",
		},
		fallback: "📋",
	}

	propertyTypeEmoji = emojiTable{
		values: map[string]string{
			"house":     "🏡",
			"apartment": "🏢",
			"condo":     "🏘️",
			"townhouse": "🏘️",
			"land":      "🌱",
		},
		fallback: "🏢",
	}

	trendEmoji = emojiTable{
		values: map[string]string{
			"rising":    "📈",
			"stable":    "➡️",
			"declining": "📉",
		},
		fallback: "🔄",
	}

	inventoryEmoji = emojiTable{
		values: map[string]string{
			"low":      "📉",
			"balanced": "➡️",
		},
		fallback: "📈",
	}

	levelEmoji = emojiTable{
		values: map[string]string{
			"beginner":     "🟢",
			"intermediate": "🟡",
		},
		fallback: "🔴",
	}

	impactEmoji = emojiTable{
		values: map[string]string{
			"positive": "📈",
			"negative": "📉",
			"mixed":    "🔄",
		},
		fallback: "➡️",
	}

	priorityEmoji = emojiTable{
		values: map[string]string{
			"high":   "🚨",
			"medium": "📢",
		},
		fallback: "📋",
	}
)

// Hashtag turns a free-text value into a single hashtag token by removing
// all whitespace. Every rule uses it for every derived tag.
func Hashtag(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// HashtagList turns a space separated list of tags into "#a #b". Leading
// '#' characters on input tokens are tolerated.
func HashtagList(s string) string {
	var tags []string
	for _, tok := range strings.Fields(s) {
		tok = strings.TrimLeft(tok, "#")
		if tok != "" {
			tags = append(tags, "#"+tok)
		}
	}
	return strings.Join(tags, " ")
}

func plural(n, word string) string {
	if strings.TrimSpace(n) == "1" {
		return word
	}
	return word + "s"
}
