// Package domain holds the quote model, the rules for merging, importing and
// filtering quote collections, and the error taxonomy every adapter maps to.
// Nothing here knows about HTTP, storage engines or the mirror's wire format.
package domain

import "strings"

// AllCategories is the filter sentinel that selects every quote.
const AllCategories = "all"

// Quote is a piece of text with the category it was filed under.
// Identity is the literal (Text, Category) pair; there is no surrogate key.
type Quote struct {
	// Text is the quotation itself.
	Text string `json:"text"`

	// Category is the label used for filtering.
	Category string `json:"category"`
}

// Key is the composite identity of a quote.
// Two quotes are the same iff both fields match exactly.
type Key struct {
	Text     string
	Category string
}

// Key returns the composite identity of the quote.
func (q Quote) Key() Key {
	return Key{Text: q.Text, Category: q.Category}
}

// Validate reports whether both fields are present.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "is required")
	}

	if strings.TrimSpace(q.Category) == "" {
		return NewValidationError("category", "is required")
	}

	return nil
}

// NewQuote trims both fields and returns a validated quote.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// DefaultQuotes returns the starter set used to seed an empty store.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "The only way to do great work is to love what you do.", Category: "Inspiration"},
		{Text: "Innovation distinguishes between a leader and a follower.", Category: "Innovation"},
		{Text: "Strive not to be a success, but rather to be of value.", Category: "Wisdom"},
		{Text: "The future belongs to those who believe in the beauty of their dreams.", Category: "Dreams"},
		{Text: "The mind is everything. What you think you become.", Category: "Mindset"},
		{Text: "Life is what happens when you're busy making other plans.", Category: "Life"},
		{Text: "Get busy living or get busy dying.", Category: "Motivation"},
	}
}
