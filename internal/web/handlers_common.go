package web

// handlers_common.go holds the request plumbing shared by the HTML and
// JSON conversion endpoints.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/csvxlsx/internal/core"
)

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

const (
	formPassword = "password"
	formFiles    = "files"
)

var errNoFiles = errors.New("no file provided")

// parseIntParam reads a positive integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseUploadForm caps the body at the configured request size and parses
// it. A urlencoded body is accepted so the gate still sees the password.
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxRequestSize)
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

// cleanupForm removes any temporary files left by the multipart parser.
func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// uploadHeaders returns the file parts of the request, checking the count.
func (s *Server) uploadHeaders(r *http.Request) ([]*multipart.FileHeader, error) {
	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File[formFiles]
	}
	if len(headers) == 0 {
		return nil, errNoFiles
	}
	if limit := s.cfg.Upload.MaxFiles; len(headers) > limit {
		return nil, fmt.Errorf("file limit exceeded: %d files, at most %d", len(headers), limit)
	}
	return headers, nil
}

// readUploads loads each part into memory. Parts declared larger than the
// per-file limit are not opened; the converter skips them by size.
func (s *Server) readUploads(headers []*multipart.FileHeader) ([]core.UploadedFile, error) {
	limit := s.converter.Options().MaxFileSize

	files := make([]core.UploadedFile, 0, len(headers))
	for _, h := range headers {
		f := core.UploadedFile{Name: h.Filename, Size: h.Size}
		if h.Size <= limit {
			data, err := readPart(h, limit)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", h.Filename, err)
			}
			f.Data = data
			if int64(len(data)) > f.Size {
				f.Size = int64(len(data))
			}
		}
		files = append(files, f)
	}
	return files, nil
}

func readPart(h *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// One byte past the limit is enough for the size check to trip.
	return io.ReadAll(io.LimitReader(f, limit+1))
}

// convert runs files through the converter inside a limiter slot.
func (s *Server) convert(ctx context.Context, files []core.UploadedFile) (*core.BatchResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	return s.converter.ConvertBatch(ctx, files)
}

// convertStatus maps a conversion error to a status code.
func convertStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}
