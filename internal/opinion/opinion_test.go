package opinion

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStarBuckets(t *testing.T) {
	buckets := StarBuckets()
	assert.Len(t, buckets, 10)
	assert.Equal(t, 0.5, buckets[0])
	assert.Equal(t, 5.0, buckets[9])
	assert.Equal(t, "0.5", StarsKey(buckets[0]))
	assert.Equal(t, "5.0", StarsKey(buckets[9]))
}

func TestValidStars(t *testing.T) {
	for _, s := range StarBuckets() {
		assert.True(t, ValidStars(s), s)
	}
	for _, s := range []float64{0, 0.25, 4.7, 5.5, -1} {
		assert.False(t, ValidStars(s), s)
	}
}

func TestRecommendationJSON(t *testing.T) {
	for _, r := range Recommendations {
		data, err := json.Marshal(r)
		require.NoError(t, err)

		var back Recommendation
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, r, back)
	}
	assert.Equal(t, "unknown", RecommendationUnknown.String())

	var r Recommendation
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &r))
}

func TestRecordJSONFieldOrder(t *testing.T) {
	rec := Record{
		ID:        "1",
		Published: time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	keys := []string{`"opinion_id"`, `"author"`, `"recommendation":null`, `"stars"`, `"content_pl"`, `"content_en"`,
		`"pros_pl"`, `"pros_en"`, `"cons_pl"`, `"cons_en"`, `"up_votes"`, `"down_votes"`, `"published"`, `"purchased":null`}
	last := -1
	for _, k := range keys {
		idx := strings.Index(string(data), k)
		assert.Greater(t, idx, last, k)
		last = idx
	}
}
