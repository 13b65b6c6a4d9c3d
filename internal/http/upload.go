package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/media"
)

const multipartMemory = 32 << 20

// parseForm accepts multipart and urlencoded bodies up to MaxUploadBytes and
// writes the error response itself when it returns false.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "Upload exceeds the size limit")
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid_request", "Malformed form body")
	return false
}

func formValue(r *http.Request, name string) (string, bool) {
	values, ok := r.PostForm[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

func formFiles(r *http.Request, names ...string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	var files []*multipart.FileHeader
	for _, name := range names {
		files = append(files, r.MultipartForm.File[name]...)
	}
	return files
}

func readUpload(header *multipart.FileHeader) (media.File, error) {
	f, err := header.Open()
	if err != nil {
		return media.File{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return media.File{}, fmt.Errorf("read upload: %w", err)
	}
	return media.File{
		Name:        header.Filename,
		ContentType: media.ContentType(header, data),
		Data:        data,
	}, nil
}

func (s *Server) upload(ctx context.Context, kind media.Kind, file media.File) (string, error) {
	url, err := s.uploader.Upload(ctx, kind, file)
	s.metrics.uploads.WithLabelValues(string(kind), result(err)).Inc()
	return url, err
}

func unsupportedFile(w http.ResponseWriter, expected string) {
	writeError(w, http.StatusBadRequest, "unsupported_file_type", "Only "+expected+" files are allowed")
}
