// Package media stores uploaded images, videos and documents in an
// S3-compatible bucket and hands back their public URLs.
package media

import (
	"context"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Kind selects the key prefix an upload is stored under.
type Kind string

const (
	KindImage Kind = "images"
	KindVideo Kind = "org_videos"
	KindFile  Kind = "files"
)

// File is an upload that has already been read and validated.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Uploader interface {
	Upload(ctx context.Context, kind Kind, file File) (string, error)
}

// ContentType prefers the part's declared type and falls back to sniffing.
func ContentType(header *multipart.FileHeader, data []byte) string {
	if header != nil {
		declared := strings.TrimSpace(header.Header.Get("Content-Type"))
		if declared != "" && declared != "application/octet-stream" {
			return strings.ToLower(strings.SplitN(declared, ";", 2)[0])
		}
	}
	sniffed := http.DetectContentType(data)
	return strings.SplitN(sniffed, ";", 2)[0]
}

func IsImage(contentType string) bool { return strings.HasPrefix(contentType, "image/") }

func IsVideo(contentType string) bool { return strings.HasPrefix(contentType, "video/") }

func IsPDF(contentType string) bool { return contentType == "application/pdf" }

// ObjectKey builds "<kind>/<uuid><ext>" keeping only the original extension.
func ObjectKey(kind Kind, name string) string {
	return string(kind) + "/" + uuid.NewString() + strings.ToLower(path.Ext(path.Base(name)))
}
