// Package storage defines the corpus file-system abstraction for raw
// ingested document text.
package storage

// Provider is the interface for corpus file operations. Paths are
// relative to the corpus root; the ingestion service stores one file per
// catalogued document, named by document id.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// List returns the relative paths of every stored file under dir.
	List(dir string) ([]string, error)
}
