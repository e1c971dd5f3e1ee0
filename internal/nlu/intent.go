package nlu

// Intent is the classified purpose of an utterance.
type Intent string

const (
	IntentGreeting         Intent = "greeting"
	IntentCurrentPrice     Intent = "current_price"
	IntentPredict          Intent = "predict"
	IntentHedgeOrSpeculate Intent = "hedge_or_speculate"
	IntentHistory          Intent = "history"
	IntentHelp             Intent = "help"
	IntentUnknown          Intent = "unknown"
	IntentExit             Intent = "exit"
)

// Rule maps a set of trigger keywords to an intent.
type Rule struct {
	Intent   Intent
	Keywords []string
}

// Match reports whether any keyword is among the filtered tokens.
func (r Rule) Match(tokens map[string]struct{}) bool {
	for _, kw := range r.Keywords {
		if _, ok := tokens[kw]; ok {
			return true
		}
	}
	return false
}

// DefaultRules is the intent priority order. Rules are evaluated top to
// bottom and the first match wins; IntentUnknown applies when none match.
var DefaultRules = []Rule{
	{IntentGreeting, []string{"hello", "hi", "hey"}},
	{IntentCurrentPrice, []string{"price", "prices"}},
	{IntentPredict, []string{"predict", "predictions"}},
	{IntentHedgeOrSpeculate, []string{"hedge", "speculate"}},
	{IntentHistory, []string{"history", "historical"}},
	{IntentHelp, []string{"help"}},
}

// Classify returns the intent of the first rule matching tokens.
func Classify(rules []Rule, tokens []string) Intent {
	set := toSet(tokens)
	for _, r := range rules {
		if r.Match(set) {
			return r.Intent
		}
	}
	return IntentUnknown
}
