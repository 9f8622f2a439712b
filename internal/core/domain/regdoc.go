package domain

import "time"

// RegDoc is one node of the scraped regulation corpus: a TOC entry together
// with its page content metadata. Chunked passages live in the document
// store; RegDoc carries the read-model fields the API exposes.
type RegDoc struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Title         string    `json:"title"`
	URL           string    `json:"url,omitempty"`
	ParentCode    string    `json:"parent_code,omitempty"`
	Depth         int       `json:"depth"`
	SortKey       int       `json:"sort_key"`
	Language      string    `json:"language"`
	PageTitle     string    `json:"page_title,omitempty"`
	ContentSHA256 string    `json:"content_sha256,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at"`
}
