package prompt

import "strings"

// Action is what the traveler asked the engine to do.
type Action string

const (
	ActionSkip            Action = "skip"
	ActionReplaceCategory Action = "replace_category"
	ActionPause           Action = "pause"
	ActionExtend          Action = "extend"
	ActionUnknown         Action = "unknown"
	// ActionUnclassified is the public result when nothing usable was found.
	ActionUnclassified Action = "unclassified"
)

// ValidActions are the actions a classifier may return.
var ValidActions = map[Action]bool{
	ActionSkip: true, ActionReplaceCategory: true, ActionPause: true,
	ActionExtend: true, ActionUnknown: true,
}

type categoryKeywords struct {
	category string
	keywords []string
}

// categoryTable is consulted first, so "skip this and get food" resolves to a
// food replacement rather than a bare skip.
var categoryTable = []categoryKeywords{
	{"food", []string{"food", "hungry", "lunch", "dinner", "breakfast", "restaurant", "snack", "meal", "brunch", "something to eat"}},
	{"cafe", []string{"coffee", "cafe", "café", "espresso"}},
	{"museum", []string{"museum", "gallery", "exhibit"}},
	{"nightlife", []string{"drinks", "a drink", "beer", "wine", "cocktail", "pub"}},
	{"shopping", []string{"shop", "shopping", "market", "souvenir"}},
	{"nature", []string{"park", "garden", "beach", "hike", "viewpoint"}},
}

var (
	skipKeywords   = []string{"skip", "cancel", "not interested", "something else", "don't want", "dont want", "not feeling", "boring", "replace"}
	pauseKeywords  = []string{"pause", "break", "tired", "need a rest", "sit down", "restroom", "bathroom", "toilet", "breather"}
	extendKeywords = []string{"more time", "extend", "stay longer", "longer", "few more minutes", "not done", "not finished"}
)

// Fallback resolves an action from literal substring matches. It is
// deterministic and never consults anything but text.
func Fallback(text string) (Action, string) {
	lower := strings.ToLower(text)
	for _, row := range categoryTable {
		if containsAny(lower, row.keywords) {
			return ActionReplaceCategory, row.category
		}
	}
	switch {
	case containsAny(lower, skipKeywords):
		return ActionSkip, ""
	case containsAny(lower, pauseKeywords):
		return ActionPause, ""
	case containsAny(lower, extendKeywords):
		return ActionExtend, ""
	}
	return ActionUnknown, ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
