package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"qroute/internal/knowledge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher serves canned hits and pages
type fakeSearcher struct {
	hits      []knowledge.Hit
	searchErr error
	pages     map[int64]*knowledge.Page
	delays    map[int64]time.Duration
	lastLimit int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, limit int) ([]knowledge.Hit, error) {
	f.lastLimit = limit
	return f.hits, f.searchErr
}

func (f *fakeSearcher) FetchExtract(_ context.Context, pageID int64) (*knowledge.Page, error) {
	time.Sleep(f.delays[pageID])
	if p, ok := f.pages[pageID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("page %d unavailable", pageID)
}

type searchPayload struct {
	Results []SearchResult `json:"results"`
	Error   string         `json:"error"`
}

func decode(t *testing.T, output string) searchPayload {
	t.Helper()
	var p searchPayload
	require.NoError(t, json.Unmarshal([]byte(output), &p))
	return p
}

func TestSearchTool_PreservesRankingOrder(t *testing.T) {
	src := &fakeSearcher{
		hits: []knowledge.Hit{{PageID: 1}, {PageID: 2}, {PageID: 3}},
		pages: map[int64]*knowledge.Page{
			1: {Title: "first", Extract: "a", URL: "u1"},
			2: {Title: "second", Extract: "b", URL: "u2"},
			3: {Title: "third", Extract: "c", URL: "u3"},
		},
		// the top hit finishes last
		delays: map[int64]time.Duration{1: 30 * time.Millisecond},
	}

	res := NewSearchTool(src).Search(context.Background(), "长城")
	require.True(t, res.Success, res.Error)

	p := decode(t, res.Output)
	require.Len(t, p.Results, 3)
	assert.Equal(t, "first", p.Results[0].Title)
	assert.Equal(t, "second", p.Results[1].Title)
	assert.Equal(t, "third", p.Results[2].Title)
	assert.Equal(t, "a...", p.Results[0].Snippet)
	assert.Equal(t, "u1", p.Results[0].Link)
	assert.Equal(t, 3, src.lastLimit)
}

func TestSearchTool_CapsHitsAtLimit(t *testing.T) {
	src := &fakeSearcher{pages: map[int64]*knowledge.Page{}}
	for id := int64(1); id <= 5; id++ {
		src.hits = append(src.hits, knowledge.Hit{PageID: id})
		src.pages[id] = &knowledge.Page{Title: fmt.Sprintf("page %d", id), Extract: "x"}
	}

	res := NewSearchTool(src).Search(context.Background(), "q")
	require.True(t, res.Success, res.Error)

	p := decode(t, res.Output)
	require.Len(t, p.Results, 3)
	assert.Equal(t, "page 1", p.Results[0].Title)
	assert.Equal(t, "page 3", p.Results[2].Title)
}

func TestSearchTool_SnippetLength(t *testing.T) {
	src := &fakeSearcher{
		hits:  []knowledge.Hit{{PageID: 1}},
		pages: map[int64]*knowledge.Page{1: {Title: "长城", Extract: strings.Repeat("城", 800)}},
	}

	p := decode(t, NewSearchTool(src).Search(context.Background(), "长城").Output)
	require.Len(t, p.Results, 1)
	assert.Equal(t, 503, utf8.RuneCountInString(p.Results[0].Snippet))
	assert.True(t, strings.HasSuffix(p.Results[0].Snippet, "..."))

	p = decode(t, NewSearchTool(src, WithSnippetLength(10)).Search(context.Background(), "长城").Output)
	assert.Equal(t, 13, utf8.RuneCountInString(p.Results[0].Snippet))
}

func TestSearchTool_SkipsFailedExtracts(t *testing.T) {
	src := &fakeSearcher{
		hits:  []knowledge.Hit{{PageID: 1}, {PageID: 2}},
		pages: map[int64]*knowledge.Page{2: {Title: "survivor"}},
	}

	res := NewSearchTool(src).Search(context.Background(), "q")
	require.True(t, res.Success)
	p := decode(t, res.Output)
	require.Len(t, p.Results, 1)
	assert.Equal(t, "survivor", p.Results[0].Title)
	assert.Equal(t, 1, res.Data["skipped"])
}

func TestSearchTool_Failures(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSearcher
		want string
	}{
		{
			name: "no hits",
			src:  &fakeSearcher{},
			want: "No results found",
		},
		{
			name: "all extracts fail",
			src:  &fakeSearcher{hits: []knowledge.Hit{{PageID: 1}}},
			want: "No results found",
		},
		{
			name: "status error",
			src: &fakeSearcher{searchErr: &knowledge.StatusError{
				StatusCode: http.StatusServiceUnavailable, Body: "maintenance\n",
			}},
			want: "search failed with status code 503: maintenance",
		},
		{
			name: "transport error",
			src:  &fakeSearcher{searchErr: errors.New("dial tcp: refused")},
			want: "search failed: dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewSearchTool(tt.src).Search(context.Background(), "q")
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, decode(t, res.Output).Error)
		})
	}
}

func TestSearchTool_Execute(t *testing.T) {
	st := NewSearchTool(&fakeSearcher{})
	assert.Equal(t, "web_search", st.Name())
	assert.Equal(t, []string{"query"}, st.Parameters()["required"])

	res, err := st.Execute(context.Background(), json.RawMessage(`{"query":"  "}`))
	require.NoError(t, err)
	assert.False(t, res.Success)
}

// Runs the tool against the real knowledge client and a fake MediaWiki API
func TestSearchTool_AgainstMediaWiki(t *testing.T) {
	var extractCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("list") == "search" {
			w.Write([]byte(`{"query":{"search":[{"pageid":10,"title":"长城"},{"pageid":20,"title":"明长城"}]}}`))
			return
		}
		extractCalls.Add(1)
		id := q.Get("pageids")
		fmt.Fprintf(w, `{"query":{"pages":{%q:{"pageid":%s,"title":"page-%s","extract":"intro %s","fullurl":"https://zh.wikipedia.org/?curid=%s"}}}}`,
			id, id, id, id, id)
	}))
	defer srv.Close()

	st := NewSearchTool(knowledge.NewClient(srv.URL))
	res, err := st.Execute(context.Background(), json.RawMessage(`{"query":"长城是什么时候建造的？"}`))
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	p := decode(t, res.Output)
	require.Len(t, p.Results, 2)
	assert.Equal(t, "page-10", p.Results[0].Title)
	assert.Equal(t, "intro 10...", p.Results[0].Snippet)
	assert.Equal(t, "https://zh.wikipedia.org/?curid=20", p.Results[1].Link)
	assert.EqualValues(t, 2, extractCalls.Load())
}

func TestSearchTool_MediaWikiUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Service Unavailable"))
	}))
	defer srv.Close()

	res := NewSearchTool(knowledge.NewClient(srv.URL)).Search(context.Background(), "q")
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "503")
	assert.Contains(t, res.Output, "Service Unavailable")
}
