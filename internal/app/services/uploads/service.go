// Package uploads stores operator-uploaded images on local disk under
// collision-free names.
package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/errdefs"
)

// DefaultMaxBytes caps uploads at 5 MB.
const DefaultMaxBytes = 5 << 20

var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
}

// Service implements the /upload operations.
type Service struct {
	dir      string
	maxBytes int64
	log      zerolog.Logger
}

// New constructs an upload service writing into dir.
func New(dir string, maxBytes int64, log zerolog.Logger) *Service {
	if dir == "" {
		dir = "uploads"
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{
		dir:      dir,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "uploads").Logger(),
	}
}

// Result describes a stored upload.
type Result struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// SaveImage checks type and size, then writes the file under a fresh UUID
// name so uploads never collide or overwrite. The returned URL is the path
// the static file handler serves.
func (s *Service) SaveImage(ctx context.Context, filename, contentType string, size int64, r io.Reader) (Result, error) {
	if size > s.maxBytes {
		return Result{}, errdefs.Businessf("file exceeds the %d byte limit", s.maxBytes)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return Result{}, errdefs.Businessf("unsupported file extension %q", ext)
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return Result{}, errdefs.Businessf("unsupported content type %q", contentType)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	// The limit guards against a client lying about Content-Length.
	written, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		os.Remove(path)
		return Result{}, fmt.Errorf("write upload: %w", err)
	}
	if written > s.maxBytes {
		os.Remove(path)
		return Result{}, errdefs.Businessf("file exceeds the %d byte limit", s.maxBytes)
	}

	s.log.Info().Str("file", name).Int64("size", written).Msg("image stored")
	return Result{
		URL:      "/static/uploads/" + name,
		Filename: name,
		Size:     written,
	}, nil
}

// Dir returns the storage directory for the static file handler.
func (s *Service) Dir() string { return s.dir }

// MaxBytes returns the per-file size cap.
func (s *Service) MaxBytes() int64 { return s.maxBytes }
