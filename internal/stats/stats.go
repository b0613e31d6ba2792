package stats

import (
	"sort"

	"sjsage522/opinionworker/internal/opinion"
)

// Summary is the statistics summary of one product's opinions
type Summary struct {
	OpinionsCount   int            `json:"opinions_count"`
	ProsCount       int            `json:"pros_count"`
	ConsCount       int            `json:"cons_count"`
	ProsConsCount   int            `json:"pros_cons_count"`
	AverageStars    *float64       `json:"average_stars"`
	Pros            map[string]int `json:"pros"`
	Cons            map[string]int `json:"cons"`
	Recommendations map[string]int `json:"recommendations"`
	Stars           map[string]int `json:"stars"`
}

// Aggregate folds records into a summary. The result does not depend on record order.
// AverageStars is nil when there are no records. Ratings off the half-star scale
// count toward the average but not toward the stars table.
func Aggregate(records []opinion.Record) Summary {
	s := Summary{
		OpinionsCount:   len(records),
		Pros:            make(map[string]int),
		Cons:            make(map[string]int),
		Recommendations: make(map[string]int, len(opinion.Recommendations)),
		Stars:           make(map[string]int, 10),
	}
	for _, r := range opinion.Recommendations {
		s.Recommendations[r.String()] = 0
	}
	for _, b := range opinion.StarBuckets() {
		s.Stars[opinion.StarsKey(b)] = 0
	}

	var total float64
	for _, rec := range records {
		if rec.HasPros() {
			s.ProsCount++
		}
		if rec.HasCons() {
			s.ConsCount++
		}
		if rec.HasPros() && rec.HasCons() {
			s.ProsConsCount++
		}
		for _, p := range rec.ProsEN {
			s.Pros[p]++
		}
		for _, c := range rec.ConsEN {
			s.Cons[c]++
		}
		s.Recommendations[rec.Recommendation.String()]++
		// Records loaded from hand-edited files may be off the scale;
		// the table keeps exactly the half-star buckets.
		if opinion.ValidStars(rec.Stars) {
			s.Stars[opinion.StarsKey(rec.Stars)]++
		}
		total += rec.Stars
	}

	if len(records) > 0 {
		avg := total / float64(len(records))
		s.AverageStars = &avg
	}
	return s
}

// Phrase is one row of a frequency table
type Phrase struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// TopPhrases returns up to n rows of table by descending count, ties by text.
// n <= 0 returns every row.
func TopPhrases(table map[string]int, n int) []Phrase {
	rows := make([]Phrase, 0, len(table))
	for text, count := range table {
		rows = append(rows, Phrase{Text: text, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Text < rows[j].Text
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
