package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/net/html/charset"

	"github.com/kbukum/pmidfetch/fetch"
)

const defaultTitleElement = "ArticleTitle"

// SourceConfig locates the input dataset.
type SourceConfig struct {
	// Path is the XML dataset to read.
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
	// Element is the element whose text becomes a record. Defaults to ArticleTitle.
	Element string `yaml:"element" mapstructure:"element"`
}

// ApplyDefaults fills zero values.
func (c *SourceConfig) ApplyDefaults() {
	if c.Element == "" {
		c.Element = defaultTitleElement
	}
}

// TitleSource streams the text of every matching element from an XML
// document, in document order. It implements fetch.RecordSource.
type TitleSource struct {
	dec     *xml.Decoder
	element string
	closer  io.Closer
	offset  func() int64

	closeOnce sync.Once
	closeErr  error
}

// OpenTitles opens the dataset at cfg.Path.
func OpenTitles(cfg SourceConfig) (*TitleSource, error) {
	cfg.ApplyDefaults()
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return NewTitleSource(f, cfg.Element, f), nil
}

// NewTitleSource reads matching elements from r. closer, if not nil, is
// closed by Close.
func NewTitleSource(r io.Reader, element string, closer io.Closer) *TitleSource {
	if element == "" {
		element = defaultTitleElement
	}
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity
	dec.Strict = false
	return &TitleSource{dec: dec, element: element, closer: closer, offset: dec.InputOffset}
}

// Next returns the next non-empty title. Malformed markup is returned as
// an error; the caller treats it as the end of the source.
func (s *TitleSource) Next(ctx context.Context) (fetch.Record, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return fetch.Record{}, false, err
		}
		tok, err := s.dec.Token()
		if err == io.EOF {
			return fetch.Record{}, false, nil
		}
		if err != nil {
			return fetch.Record{}, false, fmt.Errorf("read %s at offset %d: %w", s.element, s.offset(), err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != s.element {
			continue
		}
		text, err := elementText(s.dec)
		if err != nil {
			return fetch.Record{}, false, fmt.Errorf("read %s at offset %d: %w", s.element, s.offset(), err)
		}
		if text == "" {
			continue
		}
		return fetch.Record{Title: text}, true, nil
	}
}

// Close releases the underlying reader.
func (s *TitleSource) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}

// elementText gathers the character data of the element just opened,
// including text inside nested markup, and consumes its end tag.
func elementText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(t)
		}
	}
	return strings.Join(strings.FieldsFunc(b.String(), isXMLSpace), " "), nil
}

// isXMLSpace reports the XML whitespace characters. Other Unicode spaces,
// such as U+00A0, are part of the title.
func isXMLSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
