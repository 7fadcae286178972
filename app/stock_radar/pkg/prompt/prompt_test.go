package prompt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
)

func testSnapshot() *model.MarketSnapshot {
	return &model.MarketSnapshot{
		Symbol: "PLTR",
		Quote:  &model.Quote{Price: 24.5, PreviousClose: 23.9, Currency: "USD"},
		Recommendations: &model.Recommendations{
			Key: "hold", NumAnalysts: 18, CurrentPrice: 24.5, TargetMean: 21.3,
		},
		Unavailable: map[model.Category]error{
			model.CategoryHolders: errors.New("timeout"),
		},
	}
}

var asOf = time.Date(2025, 3, 14, 15, 4, 5, 0, time.UTC)

func TestBuildFinancial_Deterministic(t *testing.T) {
	snap := testSnapshot()

	a := BuildFinancial("PLTR", snap, asOf)
	b := BuildFinancial("PLTR", snap, asOf)

	assert.Equal(t, a, b)
	assert.Equal(t, KindFinancial, a.Kind)
	require.Len(t, a.Messages, 2)
	assert.Equal(t, RoleSystem, a.Messages[0].Role)
	assert.Equal(t, RoleUser, a.Messages[1].Role)
}

func TestBuildFinancial_TableContract(t *testing.T) {
	req := BuildFinancial("PLTR", testSnapshot(), asOf)
	system := req.System()

	assert.Contains(t, system, "Analyst, Firm, Accuracy, Stock, Prediction, Tentative Date")
	assert.Contains(t, system, "at least 5 different analysts")
	assert.Contains(t, system, "Analyst, Accuracy Rating (1-10)")
	assert.Contains(t, system, "87% becomes 8.7")
	assert.Contains(t, system, "100% becomes 10.0")
	assert.Contains(t, system, "0% becomes 0.0")
	assert.Contains(t, system, "rounding halves up")
	assert.Contains(t, system, "72.5% becomes 7.3")
	assert.Contains(t, system, "88.5% becomes 8.9")
	assert.Contains(t, system, "future dates only")
	assert.Contains(t, system, "Today's date is 2025-03-14")
	assert.NotContains(t, system, "%!")

	// 免责声明要求出现在两张表之后
	table2 := strings.Index(system, "second table")
	disclaimer := strings.Index(system, "After both tables, include a brief disclaimer")
	require.NotEqual(t, -1, table2)
	require.NotEqual(t, -1, disclaimer)
	assert.Less(t, table2, disclaimer)
}

func TestBuildFinancial_EmbedsSnapshot(t *testing.T) {
	snap := testSnapshot()
	req := BuildFinancial("PLTR", snap, asOf)

	rendered := snap.Render()
	assert.Contains(t, req.System(), rendered)
	assert.True(t, strings.HasPrefix(req.User(), "Summarize analyst recommendations for PLTR. Here's the latest information:\n"))
	assert.Contains(t, req.User(), "Institutional Holders: [unavailable]")
}

func TestBuildFinancial_AsOfChangesOnlyDate(t *testing.T) {
	snap := testSnapshot()
	a := BuildFinancial("PLTR", snap, asOf)
	b := BuildFinancial("PLTR", snap, asOf.Add(2*time.Hour))
	c := BuildFinancial("PLTR", snap, asOf.AddDate(0, 0, 1))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.System(), c.System())
	assert.Equal(t, a.User(), c.User())
}

func TestBuildSentiment(t *testing.T) {
	results := []model.Article{
		{Title: "Palantir wins contract", Link: "https://example.com/a", PubDate: "2025-03-10", Content: "Shares rose\n sharply."},
		{Title: "PLTR technicals", Link: "https://example.com/b"},
	}

	req := BuildSentiment("PLTR", results)

	assert.Equal(t, KindSentiment, req.Kind)
	assert.Contains(t, req.System(), "web search and sentiment analysis AI")
	user := req.User()
	assert.True(t, strings.HasPrefix(user, "Analyze the following search results for PLTR:\n"))
	assert.Contains(t, user, "1. Palantir wins contract")
	assert.Contains(t, user, "URL: https://example.com/a")
	assert.Contains(t, user, "Date: 2025-03-10")
	assert.Contains(t, user, "Shares rose sharply.")
	assert.Contains(t, user, "2. PLTR technicals")
	assert.NotContains(t, user, NoResultsMarker)

	assert.Equal(t, req, BuildSentiment("PLTR", results))
}

func TestBuildSentiment_NoResults(t *testing.T) {
	req := BuildSentiment("PLTR", nil)
	assert.Equal(t, "Analyze the following search results for PLTR:\n"+NoResultsMarker, req.User())
}

func TestRatingFromAccuracy(t *testing.T) {
	tests := []struct {
		pct  float64
		want float64
	}{
		{87, 8.7},
		{100, 10.0},
		{0, 0.0},
		{72.4, 7.2},
		{72.5, 7.3},
		{55, 5.5},
		// 半数一律向上，而不是取偶
		{88.5, 8.9},
		{86.5, 8.7},
		{0.5, 0.1},
		{99.5, 10.0},
		{72.49, 7.2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RatingFromAccuracy(tt.pct), 1e-9, "pct=%v", tt.pct)
	}
}
