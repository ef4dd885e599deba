package pubmed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/pmidfetch/errors"
	"github.com/kbukum/pmidfetch/fetch"
)

func sampleDocument() *fetch.Document {
	doc := fetch.NewDocument()
	doc.Append(
		fetch.ParsedResult{Record: fetch.Record{Seq: 1, Title: "Alpha"}, Identifier: fetch.Resolved("100")},
		fetch.ParsedResult{Record: fetch.Record{Seq: 2, Title: "Beta & <Gamma>"}, Identifier: fetch.Absent()},
	)
	return doc
}

const sampleOutput = `<?xml version="1.0" encoding="utf-8"?>
<PubmedArticleSet>
  <PubmedArticle>
    <PMID>100</PMID>
    <ArticleTitle>Alpha</ArticleTitle>
  </PubmedArticle>
  <PubmedArticle>
    <PMID></PMID>
    <ArticleTitle>Beta &amp; &lt;Gamma&gt;</ArticleTitle>
  </PubmedArticle>
</PubmedArticleSet>
`

func TestXMLSink_Write(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		name := "atomic"
		if !atomic {
			name = "direct"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "output", "result.xml")
			sink := NewXMLSink(SinkConfig{Path: path, Atomic: &atomic})

			if err := sink.Write(context.Background(), sampleDocument()); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(sampleOutput, string(got)); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}

			leftovers, _ := filepath.Glob(filepath.Join(dir, "output", ".tmp-*"))
			if len(leftovers) != 0 {
				t.Errorf("temporary files left behind: %v", leftovers)
			}
		})
	}
}

func TestXMLSink_EmptyDocument(t *testing.T) {
	data, err := NewXMLSink(SinkConfig{Path: "unused"}).Encode(fetch.NewDocument())
	if err != nil {
		t.Fatal(err)
	}
	want := `<?xml version="1.0" encoding="utf-8"?>` + "\n<PubmedArticleSet></PubmedArticleSet>\n"
	if string(data) != want {
		t.Errorf("got %q", data)
	}
}

func TestXMLSink_WriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	sink := NewXMLSink(SinkConfig{Path: filepath.Join(blocker, "result.xml")})
	err := sink.Write(context.Background(), sampleDocument())
	if !errors.Is(err, errors.ErrCodeSinkWrite) {
		t.Fatalf("expected SINK_WRITE_ERROR, got %v", err)
	}
}

func TestSinkConfig_Defaults(t *testing.T) {
	var cfg SinkConfig
	cfg.ApplyDefaults()
	if cfg.Path != filepath.Join("output", "group1_result.xml") || cfg.Root != "PubmedArticleSet" || !*cfg.Atomic {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
