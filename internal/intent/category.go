package intent

import (
	"strings"

	"github.com/spec-kit/tenant-assistant/internal/domain"
)

// CategoryClassifier maps free-text problem descriptions to a maintenance
// category. Behind an interface so the keyword map can later be swapped for
// a learned classifier without touching the ticket flow.
type CategoryClassifier interface {
	Category(text string) (domain.TicketCategory, bool)
}

// KeywordCategoryClassifier is the default keyword-map implementation.
type KeywordCategoryClassifier struct{}

// NewKeywordCategoryClassifier constructs the default category classifier.
func NewKeywordCategoryClassifier() *KeywordCategoryClassifier {
	return &KeywordCategoryClassifier{}
}

var categoryKeywords = []struct {
	category domain.TicketCategory
	words    []string
}{
	{domain.CategoryPlumbing, []string{"plumb", "sink", "leak", "pipe", "faucet", "toilet", "drain", "shower", "water heater", "clogged", "dripping", "flooding"}},
	{domain.CategoryElectrical, []string{"outlet", "socket", "light", "switch", "breaker", "power", "wiring", "sparks", "electric"}},
	{domain.CategoryHVAC, []string{"hvac", "heat", "heating", "furnace", "air conditioning", "ac ", "thermostat", "vent", "radiator"}},
	{domain.CategoryAppliance, []string{"fridge", "refrigerator", "oven", "stove", "dishwasher", "washer", "dryer", "microwave", "appliance"}},
	{domain.CategoryStructural, []string{"structural", "wall", "ceiling", "floor", "window", "roof", "crack", "door frame"}},
	{domain.CategoryPest, []string{"pest", "cockroach", "roach", "mice", "mouse", "rat", "ant", "bed bug", "termite"}},
	{domain.CategoryLocksmith, []string{"lock", "key", "locked out", "deadbolt", "latch"}},
	{domain.CategoryCleaning, []string{"mold", "mould", "trash", "garbage", "cleaning", "stain"}},
}

// otherPhrases are answers that explicitly decline every listed category.
// The bare token "other" is handled separately to avoid matching inside
// words like "another".
var otherPhrases = []string{"something else", "none of these", "none of those", "not sure"}

// Category implements CategoryClassifier. The first matching category in
// declaration order wins, keeping classification deterministic. An explicit
// "other" or "something else" answer is a positive match for CategoryOther,
// so a tenant answering the category prompt literally always fills the
// field.
func (c *KeywordCategoryClassifier) Category(text string) (domain.TicketCategory, bool) {
	normalized := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(normalized, word) {
				return entry.category, true
			}
		}
	}
	if explicitOther(normalized) {
		return domain.CategoryOther, true
	}
	return domain.CategoryOther, false
}

func explicitOther(normalized string) bool {
	for _, phrase := range otherPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	for _, token := range strings.Fields(normalized) {
		if strings.Trim(token, ".,!?") == "other" {
			return true
		}
	}
	return false
}

var emergencyWords = []string{"flood", "burst", "fire", "gas", "sparks", "sewage", "no heat"}
var highWords = []string{"no hot water", "no power", "locked out", "leak"}

// DerivePriority infers urgency from the description. Defaults to normal.
func DerivePriority(text string) domain.TicketPriority {
	normalized := strings.ToLower(text)
	for _, word := range emergencyWords {
		if strings.Contains(normalized, word) {
			return domain.PriorityEmergency
		}
	}
	for _, word := range highWords {
		if strings.Contains(normalized, word) {
			return domain.PriorityHigh
		}
	}
	return domain.PriorityNormal
}
