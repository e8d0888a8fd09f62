package domain

// TabKey names one of the three independent conversation contexts.
type TabKey string

const (
	TabRagSearch    TabKey = "rag_search"
	TabKendraSearch TabKey = "kendra_search"
	TabMultiModal   TabKey = "multi_modal"
)

// TabKeys lists all tabs in display order.
var TabKeys = []TabKey{TabRagSearch, TabKendraSearch, TabMultiModal}

// Valid reports whether k is a known tab key.
func (k TabKey) Valid() bool {
	switch k {
	case TabRagSearch, TabKendraSearch, TabMultiModal:
		return true
	}
	return false
}
