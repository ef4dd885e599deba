package pubmed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/pmidfetch/fetch"
	"github.com/kbukum/pmidfetch/pipeline"
)

const dataset = `<?xml version="1.0" encoding="UTF-8"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <Article>
        <ArticleTitle>Alpha</ArticleTitle>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <Article>
        <ArticleTitle>Effects of <i>in vitro</i>
          exposure &amp; recovery.</ArticleTitle>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <ArticleTitle>   </ArticleTitle>
  </PubmedArticle>
  <PubmedArticle>
    <ArticleTitle>Gamma&nbsp;ray</ArticleTitle>
  </PubmedArticle>
</PubmedArticleSet>`

func titlesOf(t *testing.T, src *TitleSource) []string {
	t.Helper()
	recs, err := pipeline.Collect(context.Background(), pipeline.Iterator[fetch.Record](src))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func TestTitleSource(t *testing.T) {
	src := NewTitleSource(strings.NewReader(dataset), "", nil)
	want := []string{"Alpha", "Effects of in vitro exposure & recovery.", "Gamma\u00a0ray"}
	if diff := cmp.Diff(want, titlesOf(t, src)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestTitleSource_Whitespace(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"collapses xml whitespace", "<S><ArticleTitle> a \t\r\n b </ArticleTitle></S>", "a b"},
		{"keeps non-breaking space", "<S><ArticleTitle>a\u00a0b</ArticleTitle></S>", "a\u00a0b"},
		{"keeps em space", "<S><ArticleTitle>a\u2003 b</ArticleTitle></S>", "a\u2003 b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewTitleSource(strings.NewReader(tt.doc), "ArticleTitle", nil)
			if diff := cmp.Diff([]string{tt.want}, titlesOf(t, src)); diff != "" {
				t.Errorf("titles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTitleSource_Latin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><Set><ArticleTitle>Caf\xe9</ArticleTitle></Set>"
	src := NewTitleSource(strings.NewReader(doc), "ArticleTitle", nil)
	if diff := cmp.Diff([]string{"Café"}, titlesOf(t, src)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestTitleSource_TruncatedIsError(t *testing.T) {
	src := NewTitleSource(strings.NewReader("<Set><ArticleTitle>One</ArticleTitle><ArticleTitle>Tw"), "", nil)
	ctx := context.Background()

	rec, ok, err := src.Next(ctx)
	if err != nil || !ok || rec.Title != "One" {
		t.Fatalf("first Next = %+v,%v,%v", rec, ok, err)
	}
	if _, _, err := src.Next(ctx); err == nil {
		t.Fatal("expected an error for truncated markup")
	}
}

func TestTitleSource_CancelledContext(t *testing.T) {
	src := NewTitleSource(strings.NewReader(dataset), "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := src.Next(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestOpenTitles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.xml")
	if err := os.WriteFile(path, []byte(dataset), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := OpenTitles(SourceConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if got := titlesOf(t, src); len(got) != 3 {
		t.Errorf("expected 3 titles, got %v", got)
	}

	if _, err := OpenTitles(SourceConfig{Path: filepath.Join(t.TempDir(), "missing.xml")}); err == nil {
		t.Error("expected error for a missing dataset")
	}
}
