package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/config"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/crypto"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/logging"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
)

const testPassword = "correct-horse"

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 16)...)
	pdfBytes = []byte("%PDF-1.4\n%test\n")
)

type testEnv struct {
	cfg      config.Config
	store    *memStore
	uploader *fakeUploader
	mailer   *fakeMailer
	ledger   *memLedger
	server   *Server
	app      *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Config{
		JWTSecret:       "test-secret",
		JWTIssuer:       "test-issuer",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		ResetTokenTTL:   time.Hour,
		ClientURL:       "https://forum.example.com",
		MaxUploadBytes:  5 << 20,
	}
	env := &testEnv{
		cfg:      cfg,
		store:    newMemStore(),
		uploader: &fakeUploader{},
		mailer:   &fakeMailer{},
		ledger:   &memLedger{},
	}
	env.server = NewServer(cfg, env.store, env.uploader, env.mailer, env.ledger, logging.Discard())
	env.app = httptest.NewServer(env.server.Router())
	t.Cleanup(env.app.Close)
	return env
}

func (e *testEnv) url(path string) string {
	return e.app.URL + "/api/v1" + path
}

func (e *testEnv) seedOrg(t *testing.T, name string) model.Org {
	t.Helper()
	org, err := e.store.CreateOrg(context.Background(), model.Org{Name: name})
	require.NoError(t, err)
	return org
}

func (e *testEnv) seedUser(t *testing.T, email, role string, orgID *int64) model.User {
	t.Helper()
	hash, err := crypto.HashPassword(testPassword)
	require.NoError(t, err)
	user, err := e.store.CreateUser(context.Background(), model.User{Email: email, PasswordHash: hash, Role: role, OrgID: orgID})
	require.NoError(t, err)
	return user
}

func (e *testEnv) token(t *testing.T, user model.User) string {
	t.Helper()
	pair, err := e.server.issuer.NewTokenPair(user.ID, user.Role, user.OrgID)
	require.NoError(t, err)
	return pair.AccessToken
}

type testFile struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func doReq(t *testing.T, method, url, token string, body io.Reader, contentType string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	payload := map[string]interface{}{}
	if len(bytes.TrimSpace(raw)) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), "body: %s", raw)
	}
	return resp, payload
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	return doReq(t, method, url, token, reader, "application/json")
}

func doMultipart(t *testing.T, method, url, token string, fields map[string]string, files ...testFile) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for _, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.name))
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return doReq(t, method, url, token, &buf, writer.FormDataContentType())
}

func errorCode(payload map[string]interface{}) string {
	code, _ := payload["error"].(string)
	return code
}

func nested(t *testing.T, payload map[string]interface{}, key string) map[string]interface{} {
	t.Helper()
	value, ok := payload[key].(map[string]interface{})
	require.True(t, ok, "expected object at %q in %v", key, payload)
	return value
}
