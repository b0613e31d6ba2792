package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/opinionworker/internal/opinion"
)

func sampleRecords() []opinion.Record {
	return []opinion.Record{
		{ID: "1", Recommendation: opinion.RecommendationYes, Stars: 5.0, ProsEN: []string{"price", "quality"}, ConsEN: []string{}},
		{ID: "2", Recommendation: opinion.RecommendationNo, Stars: 2.0, ProsEN: []string{}, ConsEN: []string{"noise"}},
		{ID: "3", Recommendation: opinion.RecommendationUnknown, Stars: 3.5, ProsEN: []string{"price"}, ConsEN: []string{"noise", "Noise"}},
		{ID: "4", Recommendation: opinion.RecommendationYes, Stars: 0.5},
	}
}

func sumValues(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

func TestAggregate(t *testing.T) {
	s := Aggregate(sampleRecords())

	assert.Equal(t, 4, s.OpinionsCount)
	assert.Equal(t, 2, s.ProsCount)
	assert.Equal(t, 2, s.ConsCount)
	assert.Equal(t, 1, s.ProsConsCount)
	require.NotNil(t, s.AverageStars)
	assert.InDelta(t, 2.75, *s.AverageStars, 1e-9)
	assert.Equal(t, map[string]int{"price": 2, "quality": 1}, s.Pros)
	assert.Equal(t, map[string]int{"noise": 2, "Noise": 1}, s.Cons)
	assert.Equal(t, map[string]int{"true": 2, "false": 1, "unknown": 1}, s.Recommendations)
	assert.Equal(t, 1, s.Stars["5.0"])
	assert.Equal(t, 1, s.Stars["0.5"])
	assert.Equal(t, 0, s.Stars["1.0"])
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)

	assert.Equal(t, 0, s.OpinionsCount)
	assert.Nil(t, s.AverageStars)
	assert.Len(t, s.Stars, 10)
	assert.Equal(t, 0, sumValues(s.Stars))
	assert.Len(t, s.Recommendations, 3)
	assert.Equal(t, 0, sumValues(s.Recommendations))
	assert.NotNil(t, s.Pros)
	assert.NotNil(t, s.Cons)
}

func TestAggregateDistributionsAreComplete(t *testing.T) {
	records := sampleRecords()
	for n := 0; n <= len(records); n++ {
		s := Aggregate(records[:n])
		assert.Len(t, s.Stars, 10)
		assert.Equal(t, n, sumValues(s.Stars))
		for _, b := range opinion.StarBuckets() {
			_, ok := s.Stars[opinion.StarsKey(b)]
			assert.True(t, ok)
		}
		assert.Len(t, s.Recommendations, 3)
		assert.Equal(t, n, sumValues(s.Recommendations))
	}
}

func TestAggregateIgnoresOffScaleStarsInTable(t *testing.T) {
	s := Aggregate([]opinion.Record{
		{ID: "1", Stars: 4.0},
		{ID: "2", Stars: 0},
		{ID: "3", Stars: 4.25},
	})

	assert.Len(t, s.Stars, 10)
	assert.NotContains(t, s.Stars, "0.0")
	assert.Equal(t, 1, s.Stars["4.0"])
	assert.Equal(t, 3, s.OpinionsCount)
	require.NotNil(t, s.AverageStars)
	assert.InDelta(t, 8.25/3, *s.AverageStars, 1e-9)
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	records := sampleRecords()
	expected := Aggregate(records)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]opinion.Record(nil), records...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Aggregate(shuffled)
		assert.Equal(t, expected.OpinionsCount, got.OpinionsCount)
		assert.Equal(t, expected.Pros, got.Pros)
		assert.Equal(t, expected.Cons, got.Cons)
		assert.Equal(t, expected.Stars, got.Stars)
		assert.Equal(t, expected.Recommendations, got.Recommendations)
		assert.InDelta(t, *expected.AverageStars, *got.AverageStars, 1e-9)
	}
}

func TestAggregateEndToEndScenario(t *testing.T) {
	s := Aggregate([]opinion.Record{
		{Recommendation: opinion.RecommendationYes, Stars: 5.0, ProsEN: []string{"battery"}, ConsEN: []string{}},
		{Recommendation: opinion.RecommendationNo, Stars: 2.0, ProsEN: []string{}, ConsEN: []string{"screen"}},
	})

	assert.Equal(t, 2, s.OpinionsCount)
	assert.Equal(t, map[string]int{"true": 1, "false": 1, "unknown": 0}, s.Recommendations)
	assert.Equal(t, 1, s.ProsCount)
	assert.Equal(t, 1, s.ConsCount)
	assert.Equal(t, 0, s.ProsConsCount)
	assert.Equal(t, 3.5, *s.AverageStars)
	for key, count := range s.Stars {
		switch key {
		case "5.0", "2.0":
			assert.Equal(t, 1, count, key)
		default:
			assert.Equal(t, 0, count, key)
		}
	}
}

func TestTopPhrases(t *testing.T) {
	table := map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}
	assert.Equal(t, []Phrase{{"c", 5}, {"a", 2}, {"b", 2}, {"d", 1}}, TopPhrases(table, 0))
	assert.Equal(t, []Phrase{{"c", 5}, {"a", 2}}, TopPhrases(table, 2))
	assert.Empty(t, TopPhrases(nil, 3))
}
