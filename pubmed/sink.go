package pubmed

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/kbukum/pmidfetch/errors"
	"github.com/kbukum/pmidfetch/fetch"
	"github.com/kbukum/pmidfetch/logger"
)

// SinkConfig describes the output document.
type SinkConfig struct {
	// Path is the output file. Parent directories are created.
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
	// Root, Entry, ID and Title name the output elements.
	Root  string `yaml:"root" mapstructure:"root"`
	Entry string `yaml:"entry" mapstructure:"entry"`
	ID    string `yaml:"id" mapstructure:"id"`
	Title string `yaml:"title" mapstructure:"title"`
	// Indent is the per-level indentation. Defaults to two spaces.
	Indent string `yaml:"indent" mapstructure:"indent"`
	// Atomic writes to a temporary file and renames it into place.
	// Defaults to true.
	Atomic *bool `yaml:"atomic" mapstructure:"atomic"`
}

// ApplyDefaults fills zero values with the PubmedArticleSet layout.
func (c *SinkConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = filepath.Join("output", "group1_result.xml")
	}
	if c.Root == "" {
		c.Root = "PubmedArticleSet"
	}
	if c.Entry == "" {
		c.Entry = "PubmedArticle"
	}
	if c.ID == "" {
		c.ID = "PMID"
	}
	if c.Title == "" {
		c.Title = "ArticleTitle"
	}
	if c.Indent == "" {
		c.Indent = "  "
	}
	if c.Atomic == nil {
		atomic := true
		c.Atomic = &atomic
	}
}

// XMLSink writes a document as one XML file. It implements fetch.ResultSink.
type XMLSink struct {
	cfg SinkConfig
}

// NewXMLSink returns a sink writing to cfg.Path.
func NewXMLSink(cfg SinkConfig) *XMLSink {
	cfg.ApplyDefaults()
	return &XMLSink{cfg: cfg}
}

// Path returns the output file.
func (s *XMLSink) Path() string {
	return s.cfg.Path
}

// Write encodes doc and stores it. Any failure is a SINK_WRITE_ERROR.
func (s *XMLSink) Write(ctx context.Context, doc *fetch.Document) error {
	if err := ctx.Err(); err != nil {
		return errors.SinkWrite(s.cfg.Path, err)
	}
	data, err := s.Encode(doc)
	if err != nil {
		return errors.SinkWrite(s.cfg.Path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o755); err != nil {
		return errors.SinkWrite(s.cfg.Path, err)
	}
	if *s.cfg.Atomic {
		err = writeAtomic(s.cfg.Path, data)
	} else {
		err = os.WriteFile(s.cfg.Path, data, 0o644)
	}
	if err != nil {
		return errors.SinkWrite(s.cfg.Path, err)
	}
	logger.Get("pubmed").Info("result document written", logger.Fields(
		"path", s.cfg.Path,
		"entries", doc.Len(),
		"bytes", len(data),
	))
	return nil
}

// Encode renders doc. Absent identifiers are written as empty elements.
func (s *XMLSink) Encode(doc *fetch.Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")

	enc := xml.NewEncoder(&buf)
	enc.Indent("", s.cfg.Indent)

	root := xml.StartElement{Name: xml.Name{Local: s.cfg.Root}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	entry := xml.StartElement{Name: xml.Name{Local: s.cfg.Entry}}
	idElem := xml.StartElement{Name: xml.Name{Local: s.cfg.ID}}
	titleElem := xml.StartElement{Name: xml.Name{Local: s.cfg.Title}}

	for _, e := range doc.All() {
		if err := enc.EncodeToken(entry); err != nil {
			return nil, err
		}
		if err := enc.EncodeElement(e.Identifier.String(), idElem); err != nil {
			return nil, err
		}
		if err := enc.EncodeElement(e.Record.Title, titleElem); err != nil {
			return nil, err
		}
		if err := enc.EncodeToken(entry.End()); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// writeAtomic writes data to a temporary file in the target directory and
// renames it over path, so readers never observe a partial document.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0o644)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
