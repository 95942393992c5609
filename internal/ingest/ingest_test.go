package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Library Opening Hours</title></head>
<body>
<article>
<h1>Library Opening Hours</h1>
<p>The central library is open from 8 AM to 10 PM on weekdays.</p>
<p>On weekends the reading rooms remain open until 6 PM, while the
lending desk closes at 4 PM. During examination periods the library
extends its hours around the clock.</p>
</article>
</body>
</html>`

func newTestImporter() *Importer {
	return NewImporter(nil)
}

func TestFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	entry, err := newTestImporter().FromURL(context.Background(), srv.URL, "Library")
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}

	if entry.Question != "Library Opening Hours" {
		t.Errorf("question = %q", entry.Question)
	}
	if entry.Category != "Library" {
		t.Errorf("category = %q", entry.Category)
	}
	if !strings.Contains(entry.Answer, "8 AM to 10 PM") {
		t.Errorf("answer missing page text: %q", entry.Answer)
	}
	if !strings.HasPrefix(entry.ID, "faq-") {
		t.Errorf("id = %q", entry.ID)
	}
	want := []string{"library", "opening", "hours"}
	if !reflect.DeepEqual(entry.Keywords, want) {
		t.Errorf("keywords = %v, want %v", entry.Keywords, want)
	}
}

func TestFromURLNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hello":"world"}`))
	}))
	defer srv.Close()

	if _, err := newTestImporter().FromURL(context.Background(), srv.URL, ""); err == nil {
		t.Error("expected error for non-HTML content")
	}
}

func TestFromURLHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := newTestImporter().FromURL(context.Background(), srv.URL, ""); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestFromURLBadScheme(t *testing.T) {
	if _, err := newTestImporter().FromURL(context.Background(), "ftp://example.com/x", ""); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestKeywordsFor(t *testing.T) {
	got := keywordsFor("How to Pay Your Tuition Fees?")
	want := []string{"how", "pay", "your", "tuition", "fees"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keywordsFor = %v, want %v", got, want)
	}

	if kws := keywordsFor(""); len(kws) != 0 {
		t.Errorf("expected no keywords for empty title, got %v", kws)
	}
}
