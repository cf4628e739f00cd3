package schema

import "github.com/debemdeboas/postdesk/internal/model"

func req(name, label string) Field { return Field{Name: name, Label: label, Required: true} }
func opt(name, label string) Field { return Field{Name: name, Label: label} }

var registry = map[model.ContentType]*Schema{
	model.General: {
		Type:        model.General,
		DisplayName: "General Post",
		Emoji:       "📝",
		Primary:     "content",
		Fields: []Field{
			req("title", "Title"),
			req("content", "Content"),
			opt("category", "Category"),
			req("author", "Author"),
			opt("hashtags", "Hashtags"),
		},
	},
	model.Listing: {
		Type:        model.Listing,
		DisplayName: "Property Listing",
		Emoji:       "🏠",
		Primary:     "description",
		Fields: []Field{
			req("type", "Property Type"),
			req("status", "Status"),
			req("price", "Price"),
			req("beds", "Bedrooms"),
			req("baths", "Bathrooms"),
			opt("sqft", "Square Feet"),
			req("address", "Address"),
			req("city", "City"),
			req("state", "State"),
			req("zip", "ZIP Code"),
			opt("features", "Features"),
			req("description", "Description"),
			opt("highlights", "Highlights"),
			req("agent", "Agent"),
			opt("phone", "Phone"),
			opt("email", "Email"),
		},
	},
	model.Market: {
		Type:        model.Market,
		DisplayName: "Market Update",
		Emoji:       "📊",
		Fields: []Field{
			req("area", "Area"),
			req("period", "Period"),
			req("type", "Property Type"),
			req("trend", "Trend"),
			req("avgPrice", "Average Price"),
			req("daysOnMarket", "Days on Market"),
			req("inventory", "Inventory"),
			opt("priceChange", "Price Change"),
			req("title", "Title"),
			req("analysis", "Analysis"),
			req("outlook", "Outlook"),
			req("author", "Author"),
		},
	},
	model.Tips: {
		Type:        model.Tips,
		DisplayName: "Buying Tips",
		Emoji:       "💡",
		Primary:     "content",
		Fields: []Field{
			req("category", "Category"),
			req("level", "Level"),
			req("title", "Title"),
			req("content", "Tip"),
			req("actionSteps", "Action Steps"),
			req("author", "Author"),
		},
	},
	model.News: {
		Type:        model.News,
		DisplayName: "Industry News",
		Emoji:       "📰",
		Primary:     "summary",
		Fields: []Field{
			req("category", "Category"),
			req("impact", "Market Impact"),
			req("title", "Title"),
			req("summary", "Summary"),
			req("details", "Details"),
			req("takeaway", "Key Takeaway"),
			req("author", "Author"),
		},
	},
	model.Announcement: {
		Type:        model.Announcement,
		DisplayName: "Announcement",
		Emoji:       "📢",
		Primary:     "content",
		Fields: []Field{
			req("title", "Title"),
			req("content", "Content"),
			opt("priority", "Priority"),
			req("author", "Author"),
			opt("action", "Action Required"),
		},
	},
	model.Educational: {
		Type:        model.Educational,
		DisplayName: "Educational Content",
		Emoji:       "📚",
		Primary:     "content",
		Fields: []Field{
			req("topic", "Topic"),
			req("level", "Level"),
			req("title", "Title"),
			req("content", "Content"),
			req("keyPoints", "Key Points"),
			req("author", "Author"),
		},
	},
}
