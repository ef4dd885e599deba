package pubmed

import (
	"testing"

	"github.com/kbukum/pmidfetch/fetch"
)

func TestIDListSelector(t *testing.T) {
	tests := []struct {
		name     string
		selector IDListSelector
		payload  string
		want     fetch.Identifier
		wantErr  bool
	}{
		{"single id", PMIDSelector(), `<eSearchResult><IdList><Id>100</Id></IdList></eSearchResult>`, fetch.Resolved("100"), false},
		{"first of many", PMIDSelector(), esearchResult, fetch.Resolved("30000001"), false},
		{"second position", IDListSelector{Container: "IdList", Element: "Id", Position: 1}, esearchResult, fetch.Resolved("29999999"), false},
		{"position past end", IDListSelector{Container: "IdList", Element: "Id", Position: 5}, esearchResult, fetch.Absent(), false},
		{"empty list", PMIDSelector(), `<eSearchResult><Count>0</Count><IdList/></eSearchResult>`, fetch.Absent(), false},
		{"no list", PMIDSelector(), `<eSearchResult><ERROR>Empty term and query_key - nothing todo</ERROR></eSearchResult>`, fetch.Absent(), false},
		{"other children skipped", PMIDSelector(), `<r><IdList><Note><Id>1</Id></Note><Id>2</Id></IdList></r>`, fetch.Resolved("2"), false},
		{"whitespace id", PMIDSelector(), `<r><IdList><Id>  </Id></IdList></r>`, fetch.Absent(), false},
		{"truncated", PMIDSelector(), `<eSearchResult><IdList><Id>10`, fetch.Absent(), true},
		{"garbled", PMIDSelector(), `<<garbled`, fetch.Absent(), true},
		{"plain text", PMIDSelector(), `Service unavailable`, fetch.Absent(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.selector.Extract([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func FuzzIDListSelector(f *testing.F) {
	f.Add([]byte(esearchResult))
	f.Add([]byte(`<IdList><Id>1</Id></IdList>`))
	f.Add([]byte(`<IdList><Id>`))
	f.Add([]byte{0xff, 0xfe, '<'})
	f.Fuzz(func(t *testing.T, payload []byte) {
		id, err := PMIDSelector().Extract(payload)
		if err != nil && id.IsResolved() {
			t.Errorf("error %v returned with a resolved identifier", err)
		}
	})
}
