package storage

import "io"

// BlobStore keeps raw uploaded payloads for later inspection.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
}
