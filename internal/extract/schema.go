package extract

import "fmt"

// Field names of the opinion schema
const (
	FieldID        = "opinion_id"
	FieldAuthor    = "author"
	FieldRecommend = "recommendation"
	FieldStars     = "stars"
	FieldContent   = "content"
	FieldPros      = "pros"
	FieldCons      = "cons"
	FieldUpVotes   = "up_votes"
	FieldDownVotes = "down_votes"
	FieldPublished = "published"
	FieldPurchased = "purchased"
)

// FieldDescriptor describes how to pull one named value out of a fragment.
// An empty Selector reads from the fragment itself; an empty Attribute reads text content.
type FieldDescriptor struct {
	Name      string
	Selector  string
	Attribute string
	Multiple  bool
}

// Schema is an ordered list of field descriptors
type Schema []FieldDescriptor

// Names returns the field names in schema order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, d := range s {
		names[i] = d.Name
	}
	return names
}

// Validate rejects empty and duplicate field names
func (s Schema) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for i, d := range s {
		if d.Name == "" {
			return fmt.Errorf("descriptor %d has no name", i)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("duplicate field %q", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// DefaultSchema returns the opinion schema for the review listing markup.
// A new slice is built on every call.
func DefaultSchema() Schema {
	return Schema{
		{Name: FieldID, Attribute: "data-entry-id"},
		{Name: FieldAuthor, Selector: "span.user-post__author-name"},
		{Name: FieldRecommend, Selector: "span.user-post__author-recomendation > em"},
		{Name: FieldStars, Selector: "span.user-post__score-count"},
		{Name: FieldContent, Selector: "div.user-post__text"},
		{Name: FieldPros, Selector: "div.review-feature__item.review-feature__item--positive", Multiple: true},
		{Name: FieldCons, Selector: "div.review-feature__item.review-feature__item--negative", Multiple: true},
		{Name: FieldUpVotes, Selector: "button.vote-yes", Attribute: "data-total-vote"},
		{Name: FieldDownVotes, Selector: "button.vote-no", Attribute: "data-total-vote"},
		{Name: FieldPublished, Selector: "span.user-post__published > time:nth-child(1)", Attribute: "datetime"},
		{Name: FieldPurchased, Selector: "span.user-post__published > span > time:nth-child(2)", Attribute: "datetime"},
	}
}
