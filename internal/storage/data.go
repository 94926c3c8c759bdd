package storage

// Persistence

type WriteResult struct {
	path        string
	entries     int
	contentHash string
}

func NewWriteResult(
	path string,
	entries int,
	contentHash string,
) WriteResult {
	return WriteResult{
		path:        path,
		entries:     entries,
		contentHash: contentHash,
	}
}

func (w WriteResult) Path() string {
	return w.path
}

// Entries is the number of key/value pairs written.
func (w WriteResult) Entries() int {
	return w.entries
}

func (w WriteResult) ContentHash() string {
	return w.contentHash
}
