package document

// Well-known metadata keys set by the ingestion pipeline.
const (
	MetaID      = "id"
	MetaRole    = "role"
	MetaAccount = "account"
)

// Document is a retrieved chunk of text with its metadata (immutable value object).
// Each query works on its own copy; metadata maps are never shared with the index.
type Document struct {
	content  string
	metadata map[string]string
}

// New creates a Document, copying metadata.
func New(content string, metadata map[string]string) Document {
	return Document{content: content, metadata: cloneStringMap(metadata)}
}

// Content returns the document text.
func (d Document) Content() string { return d.content }

// Metadata returns a copy of the metadata map.
func (d Document) Metadata() map[string]string { return cloneStringMap(d.metadata) }

// Meta returns a single metadata value.
func (d Document) Meta(key string) (string, bool) {
	v, ok := d.metadata[key]
	return v, ok
}

// ID returns the "id" metadata value when present.
func (d Document) ID() (string, bool) { return d.Meta(MetaID) }

// Scored pairs a document with its similarity score. The score is a ranking
// key only; its scale depends on the index backend.
type Scored struct {
	Document Document
	Score    float64
}

// Contents returns the content of each document, in order.
func Contents(docs []Scored) []string {
	out := make([]string, len(docs))
	for i := range docs {
		out[i] = docs[i].Document.Content()
	}
	return out
}

// SourceIDs returns the "id" metadata of each document, in order.
// Absent ids are nil entries.
func SourceIDs(docs []Scored) []*string {
	out := make([]*string, len(docs))
	for i := range docs {
		if id, ok := docs[i].Document.ID(); ok {
			out[i] = &id
		}
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
