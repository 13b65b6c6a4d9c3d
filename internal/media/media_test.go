package media

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/config"
)

type recordingPutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (p *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if p.err != nil {
		return nil, p.err
	}
	body, _ := io.ReadAll(in.Body)
	p.inputs = append(p.inputs, in)
	p.bodies = append(p.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestContentType(t *testing.T) {
	header := &multipart.FileHeader{Header: textproto.MIMEHeader{"Content-Type": {"image/PNG; charset=binary"}}}
	assert.Equal(t, "image/png", ContentType(header, nil))

	pdf := []byte("%PDF-1.4\n")
	octet := &multipart.FileHeader{Header: textproto.MIMEHeader{"Content-Type": {"application/octet-stream"}}}
	assert.Equal(t, "application/pdf", ContentType(octet, pdf))
	assert.Equal(t, "text/plain", ContentType(nil, []byte("plain words")))
}

func TestKindChecks(t *testing.T) {
	assert.True(t, IsImage("image/jpeg"))
	assert.False(t, IsImage("application/pdf"))
	assert.True(t, IsPDF("application/pdf"))
	assert.True(t, IsVideo("video/mp4"))
	assert.False(t, IsVideo("image/gif"))
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey(KindImage, "../Holiday.JPG")
	assert.True(t, strings.HasPrefix(key, "images/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
	assert.NotEqual(t, key, ObjectKey(KindImage, "../Holiday.JPG"))

	assert.NotContains(t, ObjectKey(KindFile, "notes"), ".")
}

func TestPublicBaseURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.MediaConfig
		want string
	}{
		{"explicit", config.MediaConfig{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"}, "https://cdn.example.com"},
		{"path style", config.MediaConfig{Bucket: "b", Endpoint: "http://minio:9000", UsePathStyle: true}, "http://minio:9000/b"},
		{"virtual host", config.MediaConfig{Bucket: "b", Endpoint: "https://storage.example.com"}, "https://b.storage.example.com"},
		{"aws", config.MediaConfig{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, publicBaseURL(tc.cfg))
		})
	}
}

func TestS3UploaderUpload(t *testing.T) {
	putter := &recordingPutter{}
	uploader := &S3Uploader{client: putter, bucket: "forum", baseURL: "https://cdn.example.com"}

	url, err := uploader.Upload(context.Background(), KindFile, File{Name: "syllabus.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	require.Len(t, putter.inputs, 1)

	in := putter.inputs[0]
	assert.Equal(t, "forum", aws.ToString(in.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(in.ContentType))
	assert.Equal(t, "%PDF", putter.bodies[0])
	assert.Equal(t, "https://cdn.example.com/"+aws.ToString(in.Key), url)
	assert.True(t, strings.HasPrefix(aws.ToString(in.Key), "files/"))
}

func TestS3UploaderUploadError(t *testing.T) {
	uploader := &S3Uploader{client: &recordingPutter{err: errors.New("denied")}, bucket: "forum", baseURL: "x"}
	_, err := uploader.Upload(context.Background(), KindImage, File{Name: "a.png", ContentType: "image/png"})
	assert.ErrorContains(t, err, "denied")
}
