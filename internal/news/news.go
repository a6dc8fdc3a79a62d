package news

import (
	"regexp"
	"strings"

	"github.com/deusflow/logistics-alert/internal/search"
)

// Item is a candidate news item mapped from a raw search result.
// Only Title and URL survive into history once the item is delivered.
type Item struct {
	Title   string
	URL     string
	Content string
	Score   float64 // passed through from the search provider, [0,1]
}

// FromResults maps raw search hits to items, keeping provider order.
func FromResults(results []search.Result) []Item {
	items := make([]Item, 0, len(results))
	for _, r := range results {
		items = append(items, Item{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   clamp(r.Score),
		})
	}
	return items
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Urgency buckets the relevance score reported by the search provider.
type Urgency int

const (
	Low Urgency = iota
	Medium
	High
)

// UrgencyOf maps a score to an urgency level: > 0.8 high, > 0.5 medium.
func UrgencyOf(score float64) Urgency {
	switch {
	case score > 0.8:
		return High
	case score > 0.5:
		return Medium
	default:
		return Low
	}
}

func (i Item) Urgency() Urgency {
	return UrgencyOf(i.Score)
}

// Label returns the bilingual label used in reports, e.g. "🔴 高 | High".
func (u Urgency) Label() string {
	switch u {
	case High:
		return "🔴 高 | High"
	case Medium:
		return "🟡 中 | Medium"
	default:
		return "🟢 低 | Low"
	}
}

func (u Urgency) String() string {
	switch u {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// EventType is a coarse category of logistics disruption detected from a title.
type EventType struct {
	Chinese  string
	English  string
	keywords []string
}

// Label returns "罢工 | Strike" style text.
func (e EventType) Label() string {
	return e.Chinese + " | " + e.English
}

// Event types in report order.
var EventTypes = []EventType{
	{Chinese: "罢工", English: "Strike", keywords: []string{"strike", "walkout", "罢工"}},
	{Chinese: "火灾", English: "Fire", keywords: []string{"fire", "blaze", "火灾"}},
	{Chinese: "港口问题", English: "Port issue", keywords: []string{"port", "港口"}},
	{Chinese: "仓库问题", English: "Warehouse issue", keywords: []string{"warehouse", "仓库"}},
	{Chinese: "运输中断", English: "Transport disruption", keywords: []string{"disruption", "中断"}},
}

// DetectEvents returns the event types mentioned across the titles of items,
// in EventTypes order, each at most once.
func DetectEvents(items []Item) []EventType {
	var found []EventType
	for _, et := range EventTypes {
		for _, it := range items {
			if containsAny(it.Title, et.keywords) {
				found = append(found, et)
				break
			}
		}
	}
	return found
}

// containsAny distinguishes phrases and short words (avoids "ai" matching "said")
func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)

	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		// If keyword is a phrase (contains space) -> substring match
		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		// Short tokens (<=3 bytes) -> whole word match
		if len(k) <= 3 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
			if re.MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
