package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
)

const resultsPage = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://ads.example.com">Sponsored</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.reuters.com%2Fpltr&amp;rut=abc">Palantir wins Army contract</a></h2>
  <a class="result__url" href="#"> www.reuters.com </a>
  <span class="result__timestamp">2024-12-02</span>
  <a class="result__snippet">Palantir   shares rose
   after the award.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://finance.example.com/pltr">PLTR technical outlook</a></h2>
  <a class="result__snippet">RSI near overbought.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://third.example.com">Third</a></h2>
</div>
</body></html>`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "PLTR stock news", r.PostForm.Get("q"))
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	c := NewClient(time.Second, WithEndpoint(srv.URL))
	resp, err := c.Search(context.Background(), &search.Request{Query: "PLTR stock news", MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	first := resp.Results[0]
	assert.Equal(t, "Palantir wins Army contract", first.Title)
	assert.Equal(t, "https://www.reuters.com/pltr", first.URL)
	assert.Equal(t, "www.reuters.com", first.Source)
	assert.Equal(t, "2024-12-02", first.PublishedDate)
	assert.Equal(t, "Palantir shares rose after the award.", first.Content)

	assert.Equal(t, "https://finance.example.com/pltr", resp.Results[1].URL)
}

func TestSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(time.Second, WithEndpoint(srv.URL))
	_, err := c.Search(context.Background(), &search.Request{Query: "PLTR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestResolveLink(t *testing.T) {
	assert.Equal(t, "https://a.com/x?y=1", resolveLink("//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.com%2Fx%3Fy%3D1"))
	assert.Equal(t, "https://b.com", resolveLink("https://b.com"))
	assert.Equal(t, "https://duckduckgo.com/about", resolveLink("//duckduckgo.com/about"))
}
