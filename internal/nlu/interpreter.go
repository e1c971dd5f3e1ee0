// Package nlu extracts an intent and an optional commodity from free text.
package nlu

import (
	"strings"

	"github.com/seenimoa/energybot/pkg/models"
)

// Catalog supplies the set of known commodities.
type Catalog interface {
	Commodities() []models.Commodity
}

// Result is the interpretation of one utterance.
type Result struct {
	Intent Intent           `json:"intent"`
	Entity models.Commodity `json:"entity,omitempty"`
	Tokens []string         `json:"tokens"`
}

// HasEntity reports whether a known commodity was named.
func (r Result) HasEntity() bool { return r.Entity != "" }

// Interpreter maps utterances to (intent, entity) pairs.
type Interpreter struct {
	rules    []Rule
	entities *EntityIndex
}

// NewInterpreter builds an interpreter over the catalog's commodities using
// DefaultRules.
func NewInterpreter(cat Catalog) *Interpreter {
	return NewInterpreterWithRules(cat, DefaultRules)
}

// NewInterpreterWithRules builds an interpreter with an explicit rule order.
func NewInterpreterWithRules(cat Catalog, rules []Rule) *Interpreter {
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &Interpreter{
		rules:    r,
		entities: NewEntityIndex(cat.Commodities()),
	}
}

// Rules returns the priority-ordered rules.
func (in *Interpreter) Rules() []Rule {
	out := make([]Rule, len(in.rules))
	copy(out, in.rules)
	return out
}

// Entities returns the commodity name index.
func (in *Interpreter) Entities() *EntityIndex { return in.entities }

// Interpret tokenizes, filters and classifies text.
func (in *Interpreter) Interpret(text string) Result {
	tokens := Filter(Tokenize(text))
	res := Result{
		Intent: Classify(in.rules, tokens),
		Tokens: tokens,
	}
	if c, ok := in.entities.Find(tokens); ok {
		res.Entity = c
	}
	return res
}

var exitWords = []string{"exit", "quit"}

// IsExit reports whether the whole input is an exit word, ignoring case and
// surrounding whitespace.
func IsExit(raw string) bool {
	raw = strings.TrimSpace(raw)
	for _, w := range exitWords {
		if strings.EqualFold(raw, w) {
			return true
		}
	}
	return false
}
