package types

// Document is a single corpus file read once per ingestion run.
type Document struct {
	Source string // Relative to corpus root, forward slashes
	Text   string
}

// Section is the text between one heading line (or the document start) and
// the next heading line.
type Section struct {
	Heading    string
	HasHeading bool // false for a leading section with no heading line
	Body       string
	Offset     int // Byte offset of the section in the document
}
