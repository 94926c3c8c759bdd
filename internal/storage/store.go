package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/rohmanhakim/booth-archiver/internal/metadata"
	"github.com/rohmanhakim/booth-archiver/pkg/failure"
	"github.com/rohmanhakim/booth-archiver/pkg/fileutil"
	"github.com/rohmanhakim/booth-archiver/pkg/hashutil"
)

/*
Responsibilities
- Load a key/value mapping from a single JSON file
- Persist the mapping back, atomically replacing the previous file

Output Characteristics
- Keys sorted, two-space indent, trailing newline
- HTML characters are not escaped, so cached bodies stay readable
- Identical mappings always produce identical bytes
*/

type Store interface {
	Load(path string) (map[string]string, failure.ClassifiedError)
	Save(path string, entries map[string]string) (WriteResult, failure.ClassifiedError)
}

type JSONStore struct {
	metadataSink metadata.MetadataSink
	hashAlgo     hashutil.HashAlgo
}

func NewJSONStore(
	metadataSink metadata.MetadataSink,
	hashAlgo hashutil.HashAlgo,
) JSONStore {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if hashAlgo == "" {
		hashAlgo = hashutil.HashAlgoBLAKE3
	}
	return JSONStore{
		metadataSink: metadataSink,
		hashAlgo:     hashAlgo,
	}
}

// Load returns the mapping stored at path. A missing file yields an empty mapping.
// A file that exists but cannot be parsed is a fatal error.
func (s JSONStore) Load(path string) (map[string]string, failure.ClassifiedError) {
	entries, err := Load(path)
	if err != nil {
		s.recordError("JSONStore.Load", path, err)
		return nil, err
	}
	return entries, nil
}

func (s JSONStore) Save(path string, entries map[string]string) (WriteResult, failure.ClassifiedError) {
	result, err := Save(path, entries, s.hashAlgo)
	if err != nil {
		s.recordError("JSONStore.Save", path, err)
		return WriteResult{}, err
	}
	s.metadataSink.RecordArtifact(
		metadata.ArtifactCacheFile,
		result.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, result.Path()),
			metadata.NewAttr(metadata.AttrMessage, fmt.Sprintf("%d entries, %s %s", result.Entries(), s.hashAlgo, result.ContentHash())),
		},
	)
	return result, nil
}

func (s JSONStore) recordError(action, path string, err failure.ClassifiedError) {
	var storageError *StorageError
	cause := metadata.CauseUnknown
	if errors.As(err, &storageError) {
		cause = mapStorageErrorToMetadataCause(storageError)
	}
	s.metadataSink.RecordError(
		time.Now(),
		"storage",
		action,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrCachePath, path),
		},
	)
}

func Load(path string) (map[string]string, failure.ClassifiedError) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseReadFailure,
			Path:      path,
		}
	}

	entries, decodeErr := Decode(data)
	if decodeErr != nil {
		return nil, &StorageError{
			Message:   decodeErr.Error(),
			Retryable: false,
			Cause:     ErrCauseCorruptFile,
			Path:      path,
		}
	}
	return entries, nil
}

func Save(path string, entries map[string]string, hashAlgo hashutil.HashAlgo) (WriteResult, failure.ClassifiedError) {
	data, err := Encode(entries)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseEncodeFailure,
			Path:      path,
		}
	}

	contentHash, err := hashutil.HashBytes(data, hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
			Path:      path,
		}
	}

	if writeErr := fileutil.WriteFileAtomic(path, data, 0o644); writeErr != nil {
		return WriteResult{}, mapFileError(path, writeErr)
	}

	return NewWriteResult(path, len(entries), contentHash), nil
}

// Encode serializes entries deterministically. A nil mapping encodes as an empty object.
func Encode(entries map[string]string) ([]byte, error) {
	if entries == nil {
		entries = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a persisted mapping. An empty document is treated as an empty mapping.
func Decode(data []byte) (map[string]string, error) {
	entries := map[string]string{}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		// literal null
		entries = map[string]string{}
	}
	return entries, nil
}

func mapFileError(path string, err failure.ClassifiedError) *StorageError {
	var fileErr *fileutil.FileError
	if errors.As(err, &fileErr) {
		switch {
		case fileErr.Cause == fileutil.ErrCausePathError:
			return &StorageError{Message: fileErr.Message, Cause: ErrCausePathError, Path: path}
		case errors.Is(fileErr, syscall.ENOSPC):
			return &StorageError{Message: fileErr.Message, Cause: ErrCauseDiskFull, Retryable: true, Path: path}
		}
	}
	return &StorageError{Message: err.Error(), Cause: ErrCauseWriteFailure, Path: path}
}
