package sentiment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/model"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/prompt"
	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
)

type fakeSearcher struct {
	results []search.Result
	err     error
	req     *search.Request
}

func (f *fakeSearcher) Search(_ context.Context, req *search.Request) (*search.Response, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &search.Response{Results: append([]search.Result(nil), f.results...)}, nil
}

type fakeGenerator struct {
	text string
	err  error
	req  prompt.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req prompt.Request) (string, error) {
	f.req = req
	return f.text, f.err
}

type fixedScorer struct {
	value float64
	err   error
}

func (s fixedScorer) Polarity(string) (float64, error) { return s.value, s.err }

func snippets(n int) []search.Result {
	results := make([]search.Result, n)
	for i := range results {
		results[i] = search.Result{
			Title:   fmt.Sprintf("PLTR headline %d", i+1),
			URL:     fmt.Sprintf("https://news.example.com/%d", i+1),
			Content: "Palantir shares moved.",
		}
	}
	return results
}

func TestAnalyze(t *testing.T) {
	s := &fakeSearcher{results: snippets(12)}
	g := &fakeGenerator{text: "Coverage is broadly positive."}
	a := NewAnalyzer(s, g, fixedScorer{value: 0.42}, nil, Options{MaxResults: 10})

	res, err := a.Analyze(context.Background(), "PLTR")
	require.NoError(t, err)

	assert.Equal(t, "PLTR stock news latest financial sheets technical indicators", s.req.Query)
	assert.Equal(t, 10, s.req.MaxResults)
	assert.Equal(t, 10, res.ResultCount)
	assert.Equal(t, "Coverage is broadly positive.", res.Analysis)
	assert.InDelta(t, 0.42, res.Polarity, 1e-9)
	assert.False(t, res.Degraded)
	assert.False(t, res.ScoringFailed)

	assert.Equal(t, prompt.KindSentiment, g.req.Kind)
	assert.Contains(t, g.req.User(), "10. PLTR headline 10")
	assert.NotContains(t, g.req.User(), "PLTR headline 11")
}

func TestAnalyze_SearchFailureDegrades(t *testing.T) {
	g := &fakeGenerator{text: "No information available."}
	a := NewAnalyzer(&fakeSearcher{err: errors.New("connection refused")}, g, fixedScorer{}, nil, Options{})

	res, err := a.Analyze(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Reason, "connection refused")
	assert.Equal(t, 0, res.ResultCount)
	assert.Contains(t, g.req.User(), prompt.NoResultsMarker)
}

func TestAnalyze_NoResultsDegrades(t *testing.T) {
	g := &fakeGenerator{text: "Nothing to report."}
	a := NewAnalyzer(&fakeSearcher{}, g, fixedScorer{value: 0}, nil, Options{})

	res, err := a.Analyze(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, "no search results", res.Reason)
	assert.Contains(t, g.req.User(), prompt.NoResultsMarker)
}

func TestAnalyze_GenerationFailure(t *testing.T) {
	genErr := &model.BranchError{Symbol: "PLTR", Branch: model.BranchSentiment, Kind: model.ErrGenerationFailure, Err: errors.New("boom")}
	a := NewAnalyzer(&fakeSearcher{results: snippets(3)}, &fakeGenerator{err: genErr}, fixedScorer{}, nil, Options{})

	res, err := a.Analyze(context.Background(), "PLTR")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, model.ErrGenerationFailure)
}

func TestAnalyze_ScoringFailure(t *testing.T) {
	a := NewAnalyzer(&fakeSearcher{results: snippets(3)}, &fakeGenerator{text: "Mixed."}, fixedScorer{value: 0.9, err: errors.New("scorer down")}, nil, Options{})

	res, err := a.Analyze(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.True(t, res.ScoringFailed)
	assert.Zero(t, res.Polarity)
	assert.Equal(t, "Mixed.", res.Analysis)
	assert.Contains(t, res.Reason, model.ErrSentimentScoring.Error())
}

func TestAnalyze_ClampsPolarity(t *testing.T) {
	a := NewAnalyzer(&fakeSearcher{results: snippets(1)}, &fakeGenerator{text: "x"}, fixedScorer{value: 3}, nil, Options{})

	res, err := a.Analyze(context.Background(), "PLTR")
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Polarity)
}

const articlePage = `<!DOCTYPE html><html><head><title>Palantir lands Army deal</title></head><body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Palantir lands Army deal</h1>
%s
</article>
<footer>Copyright</footer>
</body></html>`

func TestEnricher(t *testing.T) {
	para := strings.Repeat("<p>Palantir Technologies said on Monday that it had won a multi-year contract with the U.S. Army, expanding its government business, and analysts raised their price targets in response.</p>\n", 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, articlePage, para)
	}))
	defer srv.Close()

	long := strings.Repeat("x", minSnippetLen)
	articles := []model.Article{
		{Title: "short", Link: srv.URL + "/article", Content: "Palantir up."},
		{Title: "missing", Link: srv.URL + "/missing", Content: "kept snippet"},
		{Title: "long", Link: srv.URL + "/article", Content: long},
	}

	NewEnricher(time.Second).Enrich(context.Background(), articles)

	assert.Contains(t, articles[0].Content, "multi-year contract")
	assert.LessOrEqual(t, len([]rune(articles[0].Content)), maxContentLen)
	assert.Equal(t, "kept snippet", articles[1].Content)
	assert.Equal(t, long, articles[2].Content)
}
