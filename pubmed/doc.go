// Package pubmed adapts the fetch pipeline to NCBI PubMed.
//
// TitleSource streams ArticleTitle text out of a PubMed XML dataset,
// ESearch queries the E-utilities esearch endpoint for one title,
// IDListSelector pulls the PMID out of an eSearchResult and XMLSink
// writes the finished document as a PubmedArticleSet.
package pubmed
