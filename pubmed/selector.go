package pubmed

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/kbukum/pmidfetch/fetch"
)

// IDListSelector picks one identifier out of an XML payload: the element
// at Position among the Element children of the first Container element.
// The zero Position is the first child. It implements
// fetch.IdentifierExtractor.
type IDListSelector struct {
	Container string
	Element   string
	Position  int
}

// PMIDSelector selects the first PMID of an eSearchResult IdList.
func PMIDSelector() IDListSelector {
	return IDListSelector{Container: "IdList", Element: "Id", Position: 0}
}

// Extract returns the selected identifier. A well-formed payload without
// the container or with too few children yields Absent and no error;
// markup errors are returned.
func (s IDListSelector) Extract(payload []byte) (fetch.Identifier, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	dec.CharsetReader = charset.NewReaderLabel

	if err := seekStart(dec, s.Container); err != nil {
		if err == io.EOF {
			return fetch.Absent(), nil
		}
		return fetch.Absent(), err
	}

	index := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return fetch.Absent(), unexpected(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != s.Element {
				if err := dec.Skip(); err != nil {
					return fetch.Absent(), unexpected(err)
				}
				continue
			}
			if index < s.Position {
				index++
				if err := dec.Skip(); err != nil {
					return fetch.Absent(), unexpected(err)
				}
				continue
			}
			var value string
			if err := dec.DecodeElement(&value, &t); err != nil {
				return fetch.Absent(), unexpected(err)
			}
			return fetch.Resolved(strings.TrimSpace(value)), nil
		case xml.EndElement:
			// Container closed before reaching Position.
			return fetch.Absent(), nil
		}
	}
}

// seekStart advances dec just past the first start tag named local.
// It returns io.EOF if the document ends first.
func seekStart(dec *xml.Decoder, local string) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == local {
			return nil
		}
	}
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
