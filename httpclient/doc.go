// Package httpclient is the HTTP transport behind remote lookups.
//
// It adds three things on top of net/http: a per-request timeout, a bounded
// redirect policy and a typed Error that classifies every failure
// (timeout, connection, redirect, 4xx, 5xx) so callers can log and count
// lookup failures without inspecting transport internals.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL:      "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
//	    Timeout:      10 * time.Second,
//	    MaxRedirects: 10,
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/esearch.fcgi",
//	    Form:   url.Values{"db": {"pubmed"}, "term": {title}},
//	})
package httpclient
