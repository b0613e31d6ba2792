package opinion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Recommendation is the reviewer's verdict: true, false or unknown
type Recommendation int

const (
	RecommendationUnknown Recommendation = iota
	RecommendationYes
	RecommendationNo
)

// Recommendations lists the three states in a fixed order
var Recommendations = []Recommendation{RecommendationYes, RecommendationNo, RecommendationUnknown}

// String returns "true", "false" or "unknown"
func (r Recommendation) String() string {
	switch r {
	case RecommendationYes:
		return "true"
	case RecommendationNo:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes unknown as null
func (r Recommendation) MarshalJSON() ([]byte, error) {
	switch r {
	case RecommendationYes:
		return []byte("true"), nil
	case RecommendationNo:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false and null
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("recommendation: %w", err)
	}
	switch {
	case b == nil:
		*r = RecommendationUnknown
	case *b:
		*r = RecommendationYes
	default:
		*r = RecommendationNo
	}
	return nil
}

// Star rating scale
const (
	MinStars  = 0.5
	MaxStars  = 5.0
	StarsStep = 0.5
)

// StarBuckets returns the ten half-step ratings from 0.5 to 5.0
func StarBuckets() []float64 {
	buckets := make([]float64, 0, 10)
	for s := MinStars; s <= MaxStars; s += StarsStep {
		buckets = append(buckets, s)
	}
	return buckets
}

// ValidStars reports whether s lies on the half-step scale
func ValidStars(s float64) bool {
	if s < MinStars || s > MaxStars {
		return false
	}
	doubled := s * 2
	return doubled == float64(int(doubled))
}

// StarsKey formats a rating as a bucket key such as "4.5"
func StarsKey(s float64) string {
	return strconv.FormatFloat(s, 'f', 1, 64)
}

// Record is one normalized review
type Record struct {
	ID             string         `json:"opinion_id"`
	Author         string         `json:"author"`
	Recommendation Recommendation `json:"recommendation"`
	Stars          float64        `json:"stars"`
	ContentPL      string         `json:"content_pl"`
	ContentEN      string         `json:"content_en"`
	ProsPL         []string       `json:"pros_pl"`
	ProsEN         []string       `json:"pros_en"`
	ConsPL         []string       `json:"cons_pl"`
	ConsEN         []string       `json:"cons_en"`
	UpVotes        int            `json:"up_votes"`
	DownVotes      int            `json:"down_votes"`
	Published      time.Time      `json:"published"`
	Purchased      *time.Time     `json:"purchased"`
}

// HasPros reports whether the review lists any advantages
func (r Record) HasPros() bool {
	return len(r.ProsEN) > 0
}

// HasCons reports whether the review lists any disadvantages
func (r Record) HasCons() bool {
	return len(r.ConsEN) > 0
}
