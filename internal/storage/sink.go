// Package storage persists ContentBlob bytes to a content-addressable
// layout on disk. It owns no SQL: the persistence content adapter binds
// the Blob this package returns to a FetchAttempt row.
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rohmanhakim/newscrawl/internal/telemetry"
	"github.com/rohmanhakim/newscrawl/pkg/failure"
	"github.com/rohmanhakim/newscrawl/pkg/fileutil"
	"github.com/rohmanhakim/newscrawl/pkg/hashutil"
)

// Sink persists a decoded HTTP body under dataDir, keyed by its content
// hash, and returns the Blob record for the caller to bind to a
// FetchAttempt (spec §3: "ContentBlob is immutable once written").
type Sink interface {
	Put(dataDir string, body []byte, mediaType, charset string, hashAlgo hashutil.HashAlgo) (Blob, failure.ClassifiedError)
}

type LocalSink struct {
	recorder *telemetry.Recorder
}

func NewLocalSink(recorder *telemetry.Recorder) LocalSink {
	return LocalSink{recorder: recorder}
}

var _ Sink = (*LocalSink)(nil)

// Put hashes body, writes it to dataDir/blobs/<hash[:2]>/<hash>.bin unless
// a blob with that hash already exists, and returns the Blob record.
// Byte-identical re-fetches are deduped at the blob-storage layer; the
// caller still inserts a fresh FetchAttempt/Analysis row pointing at the
// same hash.
func (s *LocalSink) Put(dataDir string, body []byte, mediaType, charset string, hashAlgo hashutil.HashAlgo) (Blob, failure.ClassifiedError) {
	blob, err := put(dataDir, body, mediaType, charset, hashAlgo)
	if err != nil {
		var storageErr *StorageError
		errors.As(err, &storageErr)
		s.recorder.RecordError(
			time.Now(),
			"storage",
			"LocalSink.Put",
			mapStorageErrorToCause(storageErr),
			err.Error(),
			[]telemetry.Attribute{
				telemetry.NewAttr(telemetry.AttrWritePath, storageErr.Path),
			},
		)
		return Blob{}, storageErr
	}
	s.recorder.RecordArtifact(telemetry.ArtifactContentBlob, blob.Path(), []telemetry.Attribute{
		telemetry.NewAttr(telemetry.AttrWritePath, blob.Path()),
	})
	return blob, nil
}

func put(dataDir string, body []byte, mediaType, charset string, hashAlgo hashutil.HashAlgo) (Blob, *StorageError) {
	contentHash, err := hashutil.HashBytes(body, hashAlgo)
	if err != nil {
		return Blob{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      "",
		}
	}

	blobDir := filepath.Join(dataDir, "blobs", contentHash[:2])
	if ferr := fileutil.EnsureDir(blobDir); ferr != nil {
		var fileErr *fileutil.FileError
		if errors.As(ferr, &fileErr) {
			return Blob{}, &StorageError{
				Message:   ferr.Error(),
				Retryable: false,
				Cause:     ErrCausePathError,
				Path:      blobDir,
			}
		}
		return Blob{}, &StorageError{Message: ferr.Error(), Retryable: false, Cause: ErrCauseWriteFailure, Path: blobDir}
	}

	fullPath := filepath.Join(blobDir, contentHash+".bin")

	if _, statErr := os.Stat(fullPath); statErr == nil {
		return NewBlob(contentHash, fullPath, len(body), mediaType, charset, time.Now(), true), nil
	}

	if err := os.WriteFile(fullPath, body, 0644); err != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		if errors.Is(err, syscall.ENOSPC) {
			cause = ErrCauseDiskFull
			retryable = true
		}
		return Blob{}, &StorageError{Message: err.Error(), Retryable: retryable, Cause: cause, Path: fullPath}
	}

	return NewBlob(contentHash, fullPath, len(body), mediaType, charset, time.Now(), false), nil
}

func mapStorageErrorToCause(err *StorageError) telemetry.ErrorCause {
	switch err.Cause {
	case ErrCauseDiskFull, ErrCauseWriteFailure, ErrCausePathError:
		return telemetry.CauseStorageFailure
	default:
		return telemetry.CauseUnknown
	}
}
