package searxng

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/search"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "news", r.URL.Query().Get("categories"))
		assert.Equal(t, "PLTR stock", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"PLTR stock","results":[
			{"title":"A","url":"https://a.com","content":"first","engine":"bing","publishedDate":"2024-12-01"},
			{"title":"B","url":"https://b.com","content":"second","engine":"google"},
			{"title":"C","url":"https://c.com","content":"third","engine":"google"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 1)
	resp, err := c.Search(context.Background(), &search.Request{Query: "PLTR stock", Topic: "news", MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "bing", resp.Results[0].Source)
	assert.Equal(t, "2024-12-01", resp.Results[0].PublishedDate)
	assert.Equal(t, "B", resp.Results[1].Title)
}

func TestSearch_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 1).Search(context.Background(), &search.Request{Query: "PLTR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
