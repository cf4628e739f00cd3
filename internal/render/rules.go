package render

import (
	"strings"

	"github.com/debemdeboas/postdesk/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const separator = "═══════════════════"

type rule func(f model.FieldMap) string

// rules holds one formatter per content type. Adding a type means adding a
// schema entry and a rule here.
var rules = map[model.ContentType]rule{
	model.General:      renderGeneral,
	model.Listing:      renderListing,
	model.Market:       renderMarket,
	model.Tips:         renderTips,
	model.News:         renderNews,
	model.Announcement: renderAnnouncement,
	model.Educational:  renderEducational,
}

type builder struct {
	strings.Builder
}

func (b *builder) line(parts ...string) {
	for _, p := range parts {
		b.WriteString(p)
	}
	b.WriteByte('\n')
}

func (b *builder) blank() {
	b.WriteByte('\n')
}

func (b *builder) section(header, body string) {
	b.line(header)
	b.line(body)
	b.blank()
}

func (b *builder) optionalSection(header, body string) {
	if body != "" {
		b.section(header, body)
	}
}

func (b *builder) optionalLine(value string, parts ...string) {
	if value != "" {
		b.line(parts...)
	}
}

// banner writes a header line followed by the separator and a blank line.
func (b *builder) banner(header string) {
	b.line(header)
	b.line(separator)
	b.blank()
}

func (b *builder) signature(author string) {
	b.line("👤 ", author)
	b.line(separator)
}

func tags(tokens ...string) string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = Hashtag(t); t != "" {
			out = append(out, "#"+t)
		}
	}
	return strings.Join(out, " ")
}

func renderGeneral(f model.FieldMap) string {
	var b builder
	b.banner("📢 " + f["title"])
	if f["category"] != "" {
		b.line("🏷️ Category: ", f["category"])
		b.blank()
	}
	b.line(f["content"])
	b.blank()

	hashtags := HashtagList(f["hashtags"])
	if hashtags == "" {
		hashtags = tags("General", "Update")
	}
	b.WriteString(hashtags)
	return b.String()
}

func renderAnnouncement(f model.FieldMap) string {
	var b builder
	b.banner(priorityEmoji.lookup(f["priority"]) + " ANNOUNCEMENT")
	b.line("📝 ", f["title"])
	b.blank()
	b.line(f["content"])
	b.blank()
	b.optionalSection("🎯 ACTION REQUIRED:", f["action"])
	b.signature(f["author"])
	b.WriteString("📢 " + tags("Announcement", f["priority"]))
	return b.String()
}

func renderEducational(f model.FieldMap) string {
	var b builder
	b.banner("📚 EDUCATIONAL CONTENT")
	b.line("🎯 Topic: ", f["topic"])
	b.line(levelEmoji.lookup(f["level"]), " Level: ", f["level"])
	b.blank()
	b.banner("📖 " + f["title"])
	b.section("💡 CONTENT:", f["content"])
	b.section("🔑 KEY POINTS:", f["keyPoints"])
	b.signature(f["author"])
	b.WriteString("📚 " + tags("Education", f["topic"], "Learning"))
	return b.String()
}

func renderListing(f model.FieldMap) string {
	var b builder
	status := cases.Upper(language.Und).String(f["status"])

	b.line(listingStatusEmoji.lookup(f["status"]), " ", status)
	b.banner(propertyTypeEmoji.lookup(f["type"]) + " " + f["type"])

	b.line("💰 PRICE: ", f["price"])
	b.line("🛏️ ", f["beds"], " ", plural(f["beds"], "Bed"), " | 🚿 ", f["baths"], " ", plural(f["baths"], "Bath"))
	if sqft := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(f["sqft"]), "sqft")); sqft != "" {
		b.line("📏 ", sqft, " sqft")
	}
	b.blank()

	b.line("📍 LOCATION:")
	b.line(f["address"])
	b.line(f["city"], ", ", f["state"], " ", f["zip"])
	b.blank()

	b.optionalSection("✨ FEATURES:", f["features"])
	b.section("📝 DESCRIPTION:", f["description"])
	b.optionalSection("🌟 HIGHLIGHTS:", f["highlights"])

	b.line("👤 CONTACT:")
	b.line(f["agent"])
	b.optionalLine(f["phone"], "📞 ", f["phone"])
	b.optionalLine(f["email"], "📧 ", f["email"])
	b.blank()
	b.line(separator)
	b.WriteString("🏠 " + tags("RealEstate", f["city"], f["type"]))
	return b.String()
}

func renderMarket(f model.FieldMap) string {
	var b builder
	b.banner("📊 MARKET UPDATE")
	b.line("🏘️ ", f["title"])
	b.line("📍 ", f["area"], " | ", f["period"])
	b.line("🏠 ", f["type"])
	b.blank()

	b.line("📈 MARKET TREND: ", trendEmoji.lookup(f["trend"]), " ", f["trend"])
	b.line("💰 Average Price: ", f["avgPrice"])
	b.line("⏱️ Days on Market: ", f["daysOnMarket"])
	b.line("📦 Inventory: ", inventoryEmoji.lookup(f["inventory"]), " ", f["inventory"])
	b.optionalLine(f["priceChange"], "📊 Price Change: ", f["priceChange"])
	b.blank()

	b.section("🔍 ANALYSIS:", f["analysis"])
	b.section("🔮 OUTLOOK:", f["outlook"])
	b.signature(f["author"])
	b.WriteString("📊 " + tags("MarketUpdate", f["area"], "RealEstate"))
	return b.String()
}

func renderTips(f model.FieldMap) string {
	var b builder
	b.banner("💡 BUYING TIPS")
	b.line("💡 ", f["category"])
	b.line(levelEmoji.lookup(f["level"]), " ", f["level"], " Level")
	b.blank()
	b.banner("📝 " + f["title"])
	b.section("💭 TIP:", f["content"])
	b.section("✅ ACTION STEPS:", f["actionSteps"])
	b.signature(f["author"])
	b.WriteString("💡 " + tags("BuyingTips", f["category"], "RealEstate"))
	return b.String()
}

func renderNews(f model.FieldMap) string {
	var b builder
	b.banner("📰 INDUSTRY NEWS")
	b.line("📰 ", f["category"])
	b.line(impactEmoji.lookup(f["impact"]), " Market Impact: ", f["impact"])
	b.blank()
	b.banner("📝 " + f["title"])
	b.section("📋 SUMMARY:", f["summary"])
	b.section("📖 DETAILS:", f["details"])
	b.section("🔑 KEY TAKEAWAY:", f["takeaway"])
	b.signature(f["author"])
	b.WriteString("📰 " + tags("IndustryNews", f["category"], "RealEstate"))
	return b.String()
}
