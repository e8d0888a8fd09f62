package domain

// SearchResult is one raw Kendra result item, reduced to the fields link
// resolution needs.
type SearchResult struct {
	DocumentURI   string
	DocumentTitle string
}

// SignedDocumentLink is a time-limited download link for a document that
// backed a search result.
type SignedDocumentLink struct {
	DocumentName string `json:"document_name"`
	SignedURL    string `json:"signed_url"`
}

// UploadedFile is a file received from the browser for a multimodal turn.
// It lives only for the request that carries it.
type UploadedFile struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}
