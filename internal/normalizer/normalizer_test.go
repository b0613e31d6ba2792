package normalizer

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/opinionworker/internal/extract"
	"sjsage522/opinionworker/internal/opinion"
	"sjsage522/opinionworker/internal/translate"
	"sjsage522/opinionworker/pkg/errors"
)

func rawRecord(overrides map[string]extract.Value) extract.RawRecord {
	values := map[string]extract.Value{
		extract.FieldID:        extract.Text("100"),
		extract.FieldAuthor:    extract.Text("anna"),
		extract.FieldRecommend: extract.Text("Polecam"),
		extract.FieldStars:     extract.Text("4,5/5"),
		extract.FieldContent:   extract.Text("Dobry"),
		extract.FieldPros:      extract.List([]string{"cena"}),
		extract.FieldCons:      extract.List(nil),
		extract.FieldUpVotes:   extract.Text("3"),
		extract.FieldDownVotes: extract.Text("0"),
		extract.FieldPublished: extract.Text("2023-03-01 10:00:00"),
	}
	for k, v := range overrides {
		values[k] = v
	}
	return extract.NewRawRecord(extract.DefaultSchema(), values)
}

func newNormalizer(t *testing.T, tr translate.Translator) *Normalizer {
	t.Helper()
	n, err := New(DefaultOptions(), tr)
	require.NoError(t, err)
	return n
}

func TestNormalize(t *testing.T) {
	n := newNormalizer(t, translate.Static{"Dobry": "Good", "cena": "price"})

	rec, err := n.Normalize(context.Background(), rawRecord(map[string]extract.Value{
		extract.FieldPurchased: extract.Text("2023-02-20 08:30:00"),
	}))
	require.NoError(t, err)

	assert.Equal(t, "100", rec.ID)
	assert.Equal(t, "anna", rec.Author)
	assert.Equal(t, opinion.RecommendationYes, rec.Recommendation)
	assert.Equal(t, 4.5, rec.Stars)
	assert.Equal(t, "Dobry", rec.ContentPL)
	assert.Equal(t, "Good", rec.ContentEN)
	assert.Equal(t, []string{"cena"}, rec.ProsPL)
	assert.Equal(t, []string{"price"}, rec.ProsEN)
	assert.Equal(t, []string{}, rec.ConsPL)
	assert.Equal(t, []string{}, rec.ConsEN)
	assert.Equal(t, 3, rec.UpVotes)
	assert.Equal(t, 0, rec.DownVotes)
	assert.Equal(t, time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC), rec.Published)
	require.NotNil(t, rec.Purchased)
	assert.Equal(t, time.Date(2023, 2, 20, 8, 30, 0, 0, time.UTC), *rec.Purchased)
}

func TestNormalizeOptionalPurchased(t *testing.T) {
	n := newNormalizer(t, translate.Identity)
	rec, err := n.Normalize(context.Background(), rawRecord(nil))
	require.NoError(t, err)
	assert.Nil(t, rec.Purchased)
}

func TestParseStarsDecimalSeparators(t *testing.T) {
	for _, digit := range []string{"0", "1", "2", "3", "4"} {
		for _, frac := range []string{"0", "5"} {
			comma, err := ParseStars(digit + "," + frac + "/5")
			if digit == "0" && frac == "0" {
				assert.Error(t, err)
				continue
			}
			require.NoError(t, err)
			dot, err := ParseStars(digit + "." + frac + "/5")
			require.NoError(t, err)
			assert.Equal(t, comma, dot)
		}
	}

	v, err := ParseStars("5/5")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	v, err = ParseStars(" 4,5 / 5,0 ")
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)
}

func TestParseStarsMalformed(t *testing.T) {
	for _, s := range []string{
		"", "4,5", "abc/5", "4,5/", "5,5/5", "4,3/5", "-1/5",
		"4,5/0", "4,5/-3", "5/3", "0x1p1/5", "+4/5", "4e0/5", "4/5/5",
	} {
		_, err := ParseStars(s)
		assert.Error(t, err, s)
	}
}

func TestParseRecommendation(t *testing.T) {
	n := newNormalizer(t, translate.Identity)
	assert.Equal(t, opinion.RecommendationYes, n.ParseRecommendation("Polecam"))
	assert.Equal(t, opinion.RecommendationNo, n.ParseRecommendation("Nie polecam"))
	for _, s := range []string{"", "polecam", "Polecam ", "Nie", "Recommend", "true"} {
		assert.Equal(t, opinion.RecommendationUnknown, n.ParseRecommendation(s), s)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	n := newNormalizer(t, translate.Identity)

	testCases := []struct {
		field string
		value extract.Value
	}{
		{extract.FieldStars, extract.Text("bad")},
		{extract.FieldStars, extract.None},
		{extract.FieldUpVotes, extract.None},
		{extract.FieldUpVotes, extract.Text("dużo")},
		{extract.FieldDownVotes, extract.Text("-2")},
		{extract.FieldPublished, extract.Text("yesterday")},
	}

	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			_, err := n.Normalize(context.Background(), rawRecord(map[string]extract.Value{tc.field: tc.value}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrorTypeMalformed))
			assert.Contains(t, err.Error(), tc.field)
			assert.Contains(t, err.Error(), "100")
		})
	}
}

func TestNormalizeTranslationError(t *testing.T) {
	quota := stderrors.New("quota exceeded")
	n := newNormalizer(t, translate.Func(func(context.Context, string, string, string) (string, error) {
		return "", quota
	}))

	_, err := n.Normalize(context.Background(), rawRecord(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeTranslation))
	assert.ErrorIs(t, err, quota)
}

func TestNormalizeNeverTranslatesEmptyInput(t *testing.T) {
	var calls atomic.Int32
	n := newNormalizer(t, translate.Func(func(_ context.Context, text, _, _ string) (string, error) {
		calls.Add(1)
		assert.NotEmpty(t, text)
		return text, nil
	}))

	rec, err := n.Normalize(context.Background(), rawRecord(map[string]extract.Value{
		extract.FieldContent: extract.None,
		extract.FieldPros:    extract.List(nil),
		extract.FieldCons:    extract.None,
	}))
	require.NoError(t, err)
	assert.Equal(t, "", rec.ContentEN)
	assert.Empty(t, rec.ProsEN)
	assert.Empty(t, rec.ConsEN)
	assert.Equal(t, int32(0), calls.Load())
}

func TestNewRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetLang = ""
	_, err := New(opts, translate.Identity)
	assert.True(t, errors.Is(err, errors.ErrorTypeConfiguration))

	_, err = New(DefaultOptions(), nil)
	assert.Error(t, err)
}
