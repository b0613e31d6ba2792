package normalizer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sjsage522/opinionworker/internal/extract"
	"sjsage522/opinionworker/internal/opinion"
	"sjsage522/opinionworker/internal/translate"
	"sjsage522/opinionworker/pkg/errors"
)

// TimeLayout is the format of the datetime attributes on the review page
const TimeLayout = "2006-01-02 15:04:05"

// Options configures a Normalizer
type Options struct {
	SourceLang      string
	TargetLang      string
	RecommendToken  string
	DiscourageToken string
	Location        *time.Location
}

// DefaultOptions returns the options for Polish reviews translated to English
func DefaultOptions() Options {
	return Options{
		SourceLang:      "pl",
		TargetLang:      "en",
		RecommendToken:  "Polecam",
		DiscourageToken: "Nie polecam",
		Location:        time.UTC,
	}
}

// Normalizer turns raw records into typed, translated records
type Normalizer struct {
	opts       Options
	translator translate.Translator
}

// New creates a normalizer. The locales must be valid language tags.
func New(opts Options, translator translate.Translator) (*Normalizer, error) {
	if err := translate.ValidateLocale(opts.SourceLang); err != nil {
		return nil, errors.NewConfiguration("invalid source locale", err)
	}
	if err := translate.ValidateLocale(opts.TargetLang); err != nil {
		return nil, errors.NewConfiguration("invalid target locale", err)
	}
	if translator == nil {
		return nil, errors.NewConfiguration("translator is required", nil)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Normalizer{opts: opts, translator: translator}, nil
}

// Normalize converts one raw record. Coercion failures of required fields return a
// malformed error; translator failures return a translation error.
func (n *Normalizer) Normalize(ctx context.Context, raw extract.RawRecord) (opinion.Record, error) {
	id := raw.Text(extract.FieldID)

	stars, err := ParseStars(raw.Text(extract.FieldStars))
	if err != nil {
		return opinion.Record{}, errors.NewMalformed(id, extract.FieldStars, err)
	}
	upVotes, err := parseVotes(raw.Text(extract.FieldUpVotes))
	if err != nil {
		return opinion.Record{}, errors.NewMalformed(id, extract.FieldUpVotes, err)
	}
	downVotes, err := parseVotes(raw.Text(extract.FieldDownVotes))
	if err != nil {
		return opinion.Record{}, errors.NewMalformed(id, extract.FieldDownVotes, err)
	}
	published, err := n.parseTime(raw.Text(extract.FieldPublished))
	if err != nil {
		return opinion.Record{}, errors.NewMalformed(id, extract.FieldPublished, err)
	}

	rec := opinion.Record{
		ID:             id,
		Author:         raw.Text(extract.FieldAuthor),
		Recommendation: n.ParseRecommendation(raw.Text(extract.FieldRecommend)),
		Stars:          stars,
		ContentPL:      raw.Text(extract.FieldContent),
		ProsPL:         items(raw, extract.FieldPros),
		ConsPL:         items(raw, extract.FieldCons),
		UpVotes:        upVotes,
		DownVotes:      downVotes,
		Published:      published,
	}
	if purchased, err := n.parseTime(raw.Text(extract.FieldPurchased)); err == nil {
		rec.Purchased = &purchased
	}

	if rec.ContentEN, err = n.translateText(ctx, rec.ContentPL); err != nil {
		return opinion.Record{}, errors.NewTranslation(id, extract.FieldContent, err)
	}
	if rec.ProsEN, err = n.translateList(ctx, rec.ProsPL); err != nil {
		return opinion.Record{}, errors.NewTranslation(id, extract.FieldPros, err)
	}
	if rec.ConsEN, err = n.translateList(ctx, rec.ConsPL); err != nil {
		return opinion.Record{}, errors.NewTranslation(id, extract.FieldCons, err)
	}
	return rec, nil
}

// ParseRecommendation maps the localized verdict tokens; anything else is unknown
func (n *Normalizer) ParseRecommendation(s string) opinion.Recommendation {
	switch s {
	case n.opts.RecommendToken:
		return opinion.RecommendationYes
	case n.opts.DiscourageToken:
		return opinion.RecommendationNo
	default:
		return opinion.RecommendationUnknown
	}
}

// starsNumber is a plain decimal, optionally with a comma separator.
// strconv.ParseFloat alone would also take signs, exponents and hex floats.
var starsNumber = regexp.MustCompile(`^[0-9]+([.,][0-9]+)?$`)

// ParseStars parses "<rating>/<max>" where rating may use a decimal comma.
// The maximum must be positive and not below the rating.
func ParseStars(s string) (float64, error) {
	rating, scale, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, fmt.Errorf("stars %q: expected <rating>/<max>", s)
	}
	value, err := parseStarsNumber(rating)
	if err != nil {
		return 0, fmt.Errorf("stars %q: %w", s, err)
	}
	maxValue, err := parseStarsNumber(scale)
	if err != nil {
		return 0, fmt.Errorf("stars %q: bad maximum: %w", s, err)
	}
	if maxValue <= 0 {
		return 0, fmt.Errorf("stars %q: maximum must be positive", s)
	}
	if value > maxValue {
		return 0, fmt.Errorf("stars %q: rating above maximum", s)
	}
	if !opinion.ValidStars(value) {
		return 0, fmt.Errorf("stars %q: %v is off the half-star scale", s, value)
	}
	return value, nil
}

func parseStarsNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !starsNumber.MatchString(s) {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func parseVotes(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("votes %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("votes %q: negative count", s)
	}
	return n, nil
}

func (n *Normalizer) parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(s), n.opts.Location)
}

func (n *Normalizer) translateText(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	return n.translator.Translate(ctx, text, n.opts.SourceLang, n.opts.TargetLang)
}

func (n *Normalizer) translateList(ctx context.Context, in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, text := range in {
		translated, err := n.translateText(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, translated)
	}
	return out, nil
}

// items returns a fresh, non-nil copy of a list field
func items(raw extract.RawRecord, name string) []string {
	v, _ := raw.Get(name)
	if list := v.Items(); list != nil {
		return list
	}
	return []string{}
}
