package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperCast/internal/scanner"
)

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>arXiv Query</title>
  <id>http://arxiv.org/api/abc</id>
  <updated>2025-01-03T00:00:00-05:00</updated>
  <entry>
    <id>http://arxiv.org/abs/2501.00002v1</id>
    <updated>2025-01-02T18:00:00Z</updated>
    <published>2025-01-02T18:00:00Z</published>
    <title>Diffusion Models
  for Everything</title>
    <summary>  We propose a <b>new</b> diffusion model.
    It works &amp; scales.</summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2501.00002v1" rel="alternate" type="text/html"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/hep-th/9901001v1</id>
    <updated>1999-01-01T00:00:00Z</updated>
    <published>1999-01-01T00:00:00Z</published>
    <title>Old Style Identifier</title>
    <summary>Strings.</summary>
    <author><name>Ed Witten</name></author>
  </entry>
</feed>`

func TestArxivAPIScannerScan(t *testing.T) {
	t.Parallel()

	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atomFixture))
	}))
	defer server.Close()

	sc := NewArxivAPIScanner(server.Client(), server.URL+"/api/query")
	papers, err := sc.Scan(context.Background(), scanner.Request{Topic: "Diffusion Model", Query: "Diffusion Model", MaxResults: 50})
	require.NoError(t, err)

	assert.Equal(t, `all:"Diffusion Model"`, got.Get("search_query"))
	assert.Equal(t, "submittedDate", got.Get("sortBy"))
	assert.Equal(t, "descending", got.Get("sortOrder"))
	assert.Equal(t, "50", got.Get("max_results"))

	require.Len(t, papers, 2)
	first := papers[0]
	assert.Equal(t, "2501.00002v1", first.ID)
	assert.Equal(t, "http://arxiv.org/abs/2501.00002v1", first.URL)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, first.Authors)
	assert.Equal(t, "2025-01-02", first.PublishedDate)
	assert.Equal(t, "Diffusion Model", first.Query)
	assert.Contains(t, first.Abstract, "diffusion model")

	assert.Equal(t, "hep-th/9901001v1", papers[1].ID)
}

func TestArxivAPIScannerKeepsFieldedQuery(t *testing.T) {
	t.Parallel()

	u, err := buildSearchURL(DefaultArxivAPIURL, "cat:cs.AI", 0)
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "cat:cs.AI", parsed.Query().Get("search_query"))
	assert.Equal(t, "50", parsed.Query().Get("max_results"))
}

func TestArxivAPIScannerErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	sc := NewArxivAPIScanner(server.Client(), server.URL)
	_, err := sc.Scan(context.Background(), scanner.Request{Topic: "AI", Query: "AI"})
	require.Error(t, err)

	_, err = sc.Scan(context.Background(), scanner.Request{Topic: "AI"})
	require.Error(t, err)
}

func TestShortID(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{in: "http://arxiv.org/abs/2501.00001v2", want: "2501.00001v2"},
		{in: "https://arxiv.org/abs/hep-th/9901001", want: "hep-th/9901001"},
		{in: "arXiv:2501.00001", want: "2501.00001"},
		{in: "  2501.00001  ", want: "2501.00001"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ShortID(c.in), c.in)
	}
}
