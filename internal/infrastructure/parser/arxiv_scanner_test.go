package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PaperCast/internal/scanner"
)

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	base := "https://arxiv.org/list/cs.AI/recent"
	u, err := buildPageURL(base, 200, 100)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	if parsed.Scheme != "https" || parsed.Host != "arxiv.org" {
		t.Fatalf("unexpected host: %s", parsed.Host)
	}

	q := parsed.Query()
	if q.Get("skip") != "200" {
		t.Fatalf("expected skip=200, got %s", q.Get("skip"))
	}
	if q.Get("show") != "100" {
		t.Fatalf("expected show=100, got %s", q.Get("show"))
	}
}

func TestParseEntry(t *testing.T) {
	t.Parallel()

	html := `
	<dl>
	  <dt>
	    <span class="list-identifier"><a href="/abs/1234.56789">arXiv:1234.56789</a></span>
	  </dt>
	  <dd>
	    <div class="list-date">Date: 8 Nov 2025</div>
	    <div class="list-title mathjax">Title: Sample Title</div>
	    <div class="list-authors"><a href="/a/lovelace_a">Ada Lovelace</a>, <a href="/a/turing_a">Alan Turing</a></div>
	    <p class="mathjax">Abstract: Sample abstract text.</p>
	  </dd>
	</dl>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	dt := doc.Find("dt").First()
	dd := doc.Find("dd").First()

	paper := parseEntry(dt, dd, "AI", time.Now())

	if paper.ID != "1234.56789" {
		t.Fatalf("unexpected id: %s", paper.ID)
	}
	if paper.URL != "https://arxiv.org/abs/1234.56789" {
		t.Fatalf("unexpected url: %s", paper.URL)
	}
	if paper.Title != "Sample Title" {
		t.Fatalf("unexpected title: %s", paper.Title)
	}
	if paper.Abstract != "Sample abstract text." {
		t.Fatalf("unexpected abstract: %s", paper.Abstract)
	}
	if len(paper.Authors) != 2 || paper.Authors[1] != "Alan Turing" {
		t.Fatalf("unexpected authors: %v", paper.Authors)
	}
	if paper.Query != "AI" {
		t.Fatalf("unexpected query: %s", paper.Query)
	}
	if paper.PublishedDate != "2025-11-08" {
		t.Fatalf("unexpected published date: %s", paper.PublishedDate)
	}
}

func TestArxivListingScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<dl>
		  <dt>
		    <span class="list-identifier"><a href="/abs/2501.00001">arXiv:2501.00001</a></span>
		  </dt>
		  <dd>
		    <div class="list-date">Date: 8 Nov 2025</div>
		    <div class="list-title mathjax">Title: Fresh Article</div>
		    <div class="list-authors"><a href="/a/x">X</a></div>
		    <p class="mathjax">Abstract: brand new.</p>
		  </dd>
		  <dt>
		    <span class="list-identifier"><a href="/abs/2501.00002">arXiv:2501.00002</a></span>
		  </dt>
		  <dd>
		    <div class="list-date">Date: 7 Nov 2025</div>
		    <div class="list-title mathjax">Title: Old Article</div>
		    <div class="list-authors"><a href="/a/y">Y</a></div>
		    <p class="mathjax">Abstract: older.</p>
		  </dd>
		</dl>`))
	}))
	defer server.Close()

	sc := NewArxivListingScanner(server.Client())
	sc.pageSize = 10

	req := scanner.Request{
		Topic:      "cs.AI",
		Query:      server.URL + "/list/cs.AI/recent",
		MaxResults: 1,
	}

	papers, err := sc.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
	if papers[0].ID != "2501.00001" {
		t.Fatalf("unexpected paper id: %s", papers[0].ID)
	}
	if papers[0].Abstract != "brand new." {
		t.Fatalf("unexpected abstract: %s", papers[0].Abstract)
	}
}

func TestArxivListingScannerRejectsBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sc := NewArxivListingScanner(server.Client())
	if _, err := sc.Scan(context.Background(), scanner.Request{Topic: "cs.AI", Query: server.URL}); err == nil {
		t.Fatalf("expected error for 503 response")
	}
}
