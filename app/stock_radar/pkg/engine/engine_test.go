package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/llm"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/market"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/prompt"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/report"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/sentiment"
)

const financialAnalysis = `Analyst outlook for PLTR.

| Analyst | Firm | Accuracy | Stock | Prediction | Tentative Date |
|---|---|---|---|---|---|
| Jane Doe | Goldman Sachs | 87% | PLTR | Upside to $95 (+20%) | 2026 Q1 |
| John Roe | Morgan Stanley | 100% | PLTR | Upside to $90 (+14%) | 2026 Q2 |
| Ann Lee | Jefferies | 0% | PLTR | Downside to $60 (-24%) | 2026 Q1 |
| Bo Chen | Citi | 72% | PLTR | Upside to $85 (+8%) | 2026 Q3 |
| Raj Patel | Wedbush | 91% | PLTR | Upside to $100 (+27%) | 2026 Q4 |

| Analyst | Accuracy Rating (1-10) |
|---|---|
| Jane Doe | 8.7 |
| John Roe | 10.0 |
| Ann Lee | 0.0 |
| Bo Chen | 7.2 |
| Raj Patel | 9.1 |

Disclaimer: predictions are speculative; do your own research.`

// scriptedBackend 按模型返回不同结果，并记录收到的提示词
type scriptedBackend struct {
	mu      sync.Mutex
	replies map[string]fakeReply
	prompts map[string][]prompt.Message
}

type fakeReply struct {
	text string
	err  error
}

func (b *scriptedBackend) Name() string { return "fake" }

func (b *scriptedBackend) Complete(_ context.Context, modelID string, msgs []prompt.Message) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.prompts == nil {
		b.prompts = make(map[string][]prompt.Message)
	}
	b.prompts[modelID] = msgs
	r := b.replies[modelID]
	return r.text, r.err
}

type fakeSearcher struct {
	n   int
	err error
}

func (s *fakeSearcher) Search(_ context.Context, req *search.Request) (*search.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	resp := &search.Response{}
	for i := 0; i < s.n; i++ {
		resp.Results = append(resp.Results, search.Result{
			Title:   fmt.Sprintf("PLTR news %d", i+1),
			URL:     fmt.Sprintf("https://news.example.com/%d", i+1),
			Content: "Palantir expands government contracts.",
		})
	}
	return resp, nil
}

type fixedScorer float64

func (s fixedScorer) Polarity(string) (float64, error) { return float64(s), nil }

type fixture struct {
	provider *market.MockProvider
	backend  *scriptedBackend
	searcher *fakeSearcher
	scorer   sentiment.Scorer
	opts     Options
}

func newFixture() *fixture {
	return &fixture{
		provider: market.NewMockProvider(),
		backend: &scriptedBackend{replies: map[string]fakeReply{
			"fin-model":  {text: financialAnalysis},
			"sent-model": {text: "News coverage for PLTR is broadly positive."},
		}},
		searcher: &fakeSearcher{n: 10},
		scorer:   fixedScorer(0.42),
		opts:     Options{AsOf: time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)},
	}
}

func (f *fixture) engine() *Engine {
	gen := llm.NewGenerator(f.backend, llm.Options{FinancialModel: "fin-model", SentimentModel: "sent-model"})
	agg := market.NewAggregator(f.provider, market.Options{})
	analyzer := sentiment.NewAnalyzer(f.searcher, gen, f.scorer, nil, sentiment.Options{MaxResults: 10})
	return New(agg, gen, analyzer, f.opts)
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture()

	r, err := f.engine().Run(context.Background(), " pltr ")
	require.NoError(t, err)

	assert.Equal(t, "PLTR", r.Symbol)
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), r.AsOf)
	assert.Equal(t, financialAnalysis, r.FinancialAnalysis)
	assert.Equal(t, "News coverage for PLTR is broadly positive.", r.WebAnalysis)
	assert.InDelta(t, 0.42, r.Sentiment, 1e-9)
	assert.Equal(t, model.Positive, r.Label)
	assert.False(t, r.SentimentDegraded)
	assert.Empty(t, r.Unavailable)
	assert.True(t, r.Contract.Checked)
	assert.True(t, r.Contract.Valid, "issues: %v", r.Contract.Issues)

	out := report.Format(r)
	assert.Contains(t, out, "PLTR")
	assert.Contains(t, out, "Sentiment Score: 0.42")
	assert.Contains(t, out, "Overall Sentiment: Positive")

	finPrompt := f.backend.prompts["fin-model"]
	require.Len(t, finPrompt, 2)
	assert.Contains(t, finPrompt[0].Content, "2025-03-14")
	assert.Contains(t, finPrompt[1].Content, "Institutional Holders:")

	sentPrompt := f.backend.prompts["sent-model"]
	require.Len(t, sentPrompt, 2)
	assert.Contains(t, sentPrompt[1].Content, "10. PLTR news 10")
}

func TestRun_DegradedHolders(t *testing.T) {
	f := newFixture()
	f.provider.Errors = map[model.Category]error{model.CategoryHolders: errors.New("upstream timeout")}

	r, err := f.engine().Run(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.Equal(t, []model.Category{model.CategoryHolders}, r.Unavailable)
	assert.Contains(t, f.backend.prompts["fin-model"][1].Content, "Institutional Holders: [unavailable]")
	assert.Equal(t, model.Positive, r.Label)
}

func TestRun_FinancialGenerationFailure(t *testing.T) {
	f := newFixture()
	f.backend.replies["fin-model"] = fakeReply{err: errors.New("status code: 500, internal error")}

	r, err := f.engine().Run(context.Background(), "PLTR")
	assert.Nil(t, r)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrGenerationFailure)

	var be *model.BranchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, model.BranchFinancial, be.Branch)
	assert.Equal(t, "PLTR", be.Symbol)
	assert.Equal(t, "fin-model", be.Model)
}

func TestRun_MarketUnreachable(t *testing.T) {
	f := newFixture()
	f.provider.Errors = make(map[model.Category]error)
	for _, c := range model.Categories {
		f.provider.Errors[c] = errors.New("dial tcp: connection refused")
	}

	_, err := f.engine().Run(context.Background(), "PLTR")
	assert.ErrorIs(t, err, model.ErrProviderUnreachable)

	var be *model.BranchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "mock", be.Provider)
}

func TestRun_SentimentFailureDegrades(t *testing.T) {
	f := newFixture()
	f.backend.replies["sent-model"] = fakeReply{text: "   "}

	r, err := f.engine().Run(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.True(t, r.SentimentDegraded)
	assert.Zero(t, r.Sentiment)
	assert.Equal(t, model.Neutral, r.Label)
	assert.Contains(t, r.SentimentNote, "generation failure")
	assert.NotEmpty(t, r.FinancialAnalysis)
}

func TestRun_SearchFailureDegrades(t *testing.T) {
	f := newFixture()
	f.searcher.err = errors.New("search backend down")

	r, err := f.engine().Run(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.True(t, r.SentimentDegraded)
	assert.Contains(t, r.SentimentNote, "search backend down")
	assert.Contains(t, f.backend.prompts["sent-model"][1].Content, prompt.NoResultsMarker)
}

func TestRun_StrictTables(t *testing.T) {
	f := newFixture()
	f.backend.replies["fin-model"] = fakeReply{text: "PLTR looks fine, no tables today."}

	r, err := f.engine().Run(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.False(t, r.Contract.Valid)
	assert.Contains(t, r.Contract.Issues, "analyst table not found")

	f.opts.StrictTables = true
	_, err = f.engine().Run(context.Background(), "PLTR")
	assert.ErrorIs(t, err, model.ErrGenerationFailure)
	assert.True(t, strings.Contains(err.Error(), "table contract violated"))
}

func TestRun_StaleTentativeDates(t *testing.T) {
	f := newFixture()
	f.opts.AsOf = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	r, err := f.engine().Run(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.False(t, r.Contract.Valid)
	assert.Contains(t, r.Contract.Issues, `analyst Jane Doe: tentative date "2026 Q1" is not after 2026-07-01`)
	assert.Contains(t, r.Contract.Issues, `analyst John Roe: tentative date "2026 Q2" is not after 2026-07-01`)

	f.opts.StrictTables = true
	_, err = f.engine().Run(context.Background(), "PLTR")
	assert.ErrorIs(t, err, model.ErrGenerationFailure)
}

func TestRun_AsOfDefaultsToToday(t *testing.T) {
	f := newFixture()
	f.opts.AsOf = time.Time{}
	e := f.engine()
	e.now = func() time.Time { return time.Date(2025, 7, 1, 23, 59, 0, 0, time.UTC) }

	r, err := e.Run(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), r.AsOf)
}

func TestRun_LabelMapping(t *testing.T) {
	for score, want := range map[float64]model.SentimentLabel{
		0.35: model.Positive,
		-0.2: model.Negative,
		0.0:  model.Neutral,
	} {
		f := newFixture()
		f.scorer = fixedScorer(score)
		r, err := f.engine().Run(context.Background(), "PLTR")
		require.NoError(t, err)
		assert.Equal(t, want, r.Label, "score %v", score)
	}
}

func TestRun_EmptySymbol(t *testing.T) {
	_, err := newFixture().engine().Run(context.Background(), "  ")
	assert.Error(t, err)
}
