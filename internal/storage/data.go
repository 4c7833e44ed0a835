package storage

import "time"

// Blob is the content-addressable record produced by a successful write:
// the decoded body bytes plus the metadata the content persistence
// adapter needs to bind it to a FetchAttempt (spec §3 ContentBlob).
type Blob struct {
	contentHash string
	path        string
	byteLength  int
	mediaType   string
	charset     string
	writtenAt   time.Time
	deduped     bool
}

func NewBlob(
	contentHash string,
	path string,
	byteLength int,
	mediaType string,
	charset string,
	writtenAt time.Time,
	deduped bool,
) Blob {
	return Blob{
		contentHash: contentHash,
		path:        path,
		byteLength:  byteLength,
		mediaType:   mediaType,
		charset:     charset,
		writtenAt:   writtenAt,
		deduped:     deduped,
	}
}

func (b Blob) ContentHash() string {
	return b.contentHash
}

func (b Blob) Path() string {
	return b.path
}

func (b Blob) ByteLength() int {
	return b.byteLength
}

func (b Blob) MediaType() string {
	return b.mediaType
}

func (b Blob) Charset() string {
	return b.charset
}

func (b Blob) WrittenAt() time.Time {
	return b.writtenAt
}

// Deduped reports whether this hash was already on disk: the blob is
// immutable once written, so a re-fetch that produces byte-identical
// content never rewrites it (spec §3 "ContentBlob is immutable once
// written; re-fetches insert new blobs" — new FetchAttempt/Analysis rows,
// same underlying bytes).
func (b Blob) Deduped() bool {
	return b.deduped
}
