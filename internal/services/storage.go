package services

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Upload is one raw file received from the client, with its declared type.
type Upload struct {
	FileName string
	MimeType string
	Data     io.Reader
}

// StoredFile describes a persisted attachment on disk. FileSize is the byte
// count as originally received, before any downsizing.
type StoredFile struct {
	FilePath string
	FileName string
	MimeType string
	FileSize int64
}

// StorageService writes uploaded images to the local uploads directory under
// random unique names and downsizes oversized ones in place.
type StorageService struct {
	uploadDir    string
	maxBytes     int64
	allowed      map[string]bool
	maxDimension int
}

func NewStorageService(uploadDir string, maxBytes int64, allowedTypes []string, maxDimension int) (*StorageService, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[normalizeMime(t)] = true
	}

	return &StorageService{
		uploadDir:    uploadDir,
		maxBytes:     maxBytes,
		allowed:      allowed,
		maxDimension: maxDimension,
	}, nil
}

// Store validates and persists one upload, then attempts a best-effort
// downsize. The write is fatal on failure; the downsize is not — a corrupt
// or unsupported image stays on disk as received.
func (s *StorageService) Store(up Upload) (*StoredFile, error) {
	if !s.allowed[normalizeMime(up.MimeType)] {
		return nil, newValidationError("mime_type", fmt.Sprintf("file type %q is not an allowed image type", up.MimeType))
	}

	data, err := io.ReadAll(io.LimitReader(up.Data, s.maxBytes+1))
	if err != nil {
		return nil, &StorageError{Message: "Failed to read uploaded file", Err: err}
	}
	if int64(len(data)) > s.maxBytes {
		return nil, &PayloadTooLargeError{Message: fmt.Sprintf("File exceeds the %d byte limit", s.maxBytes)}
	}

	// The declared type can lie; sniff the bytes before writing anything.
	if sniffed := mimetype.Detect(data).String(); !s.allowed[normalizeMime(sniffed)] {
		return nil, newValidationError("mime_type", fmt.Sprintf("file content (%s) is not an allowed image type", sniffed))
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(up.FileName))
	path := filepath.Join(s.uploadDir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, &StorageError{Message: "Failed to write uploaded file", Err: err}
	}

	if err := resizeImage(path, s.maxDimension); err != nil {
		log.Printf("Warning: could not resize image %s: %v", path, err)
	}

	return &StoredFile{
		FilePath: path,
		FileName: up.FileName,
		MimeType: normalizeMime(up.MimeType),
		FileSize: int64(len(data)),
	}, nil
}

// StoreMany stores uploads in order. It is not atomic: a failure leaves the
// earlier files persisted but unreferenced; they stay invisible until a
// message row points at them.
func (s *StorageService) StoreMany(uploads []Upload) ([]*StoredFile, error) {
	stored := make([]*StoredFile, 0, len(uploads))
	for _, up := range uploads {
		f, err := s.Store(up)
		if err != nil {
			return nil, err
		}
		stored = append(stored, f)
	}
	return stored, nil
}

// Read returns the stored bytes for a previously persisted attachment
// (post-downsize, which is what should go to the model).
func (s *StorageService) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Delete removes a stored file. A missing file is not an error; anything
// else is logged and swallowed so a cascade delete keeps going.
func (s *StorageService) Delete(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Error deleting file %s: %v", path, err)
	}
}

// Reachable reports whether the uploads directory exists and is a directory.
func (s *StorageService) Reachable() bool {
	info, err := os.Stat(s.uploadDir)
	return err == nil && info.IsDir()
}

// Dir returns the uploads directory for static file serving.
func (s *StorageService) Dir() string {
	return s.uploadDir
}

func normalizeMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "image/jpg" {
		return "image/jpeg"
	}
	return mime
}
