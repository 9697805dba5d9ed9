package docs

// Section is one headed block of a generated document.
type Section struct {
	// Heading is rendered as a level-2 heading; empty headings are omitted
	Heading string `json:"heading,omitempty"`

	// Lines are rendered as plain paragraphs
	Lines []string `json:"lines"`
}

// Document is a created Google Doc.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}
