package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-assistant-go/internal/api/handler"
	"cv-assistant-go/internal/config"
	"cv-assistant-go/internal/notify"
	"cv-assistant-go/internal/types"
)

const testResume = `Jane Doe
jane.doe@example.com | +44 20 7946 0958

Skills
Go, Redis, PostgreSQL
`

type stubSender struct {
	calls int
}

func (s *stubSender) Send(_ context.Context, _, _, _ string) (*notify.SendResult, error) {
	s.calls++
	return &notify.SendResult{Success: true, MessageID: "msg-42", Provider: "SendGrid"}, nil
}

func newTestServer(t *testing.T, apiKey string) (*server.Hertz, *stubSender) {
	t.Helper()
	sender := &stubSender{}
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	RegisterRoutes(h, handler.NewResumeHandler(handler.Dependencies{
		Mailer:      sender,
		Upload:      config.UploadConfig{MaxSizeMB: 1, AllowedExtensions: []string{".txt", ".md"}},
		ServiceName: "CV Assistant MCP Server",
	}), apiKey)
	return h, sender
}

func jsonBody(t *testing.T, v any) *ut.Body {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return &ut.Body{Body: bytes.NewReader(raw), Len: len(raw)}
}

var jsonHeader = ut.Header{Key: "Content-Type", Value: "application/json"}

func decodeError(t *testing.T, raw []byte) string {
	t.Helper()
	var body types.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Error
}

func TestHealthRoute(t *testing.T) {
	h, _ := newTestServer(t, "")

	resp := ut.PerformRequest(h.Engine, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body types.HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "CV Assistant MCP Server", body.Service)
	assert.NotEmpty(t, body.Timestamp)
}

func TestParseRoute(t *testing.T) {
	h, _ := newTestServer(t, "")

	resp := ut.PerformRequest(h.Engine, http.MethodPost, "/api/parse", jsonBody(t, types.ParseRequest{}), jsonHeader)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Text is required", decodeError(t, resp.Body.Bytes()))

	resp = ut.PerformRequest(h.Engine, http.MethodPost, "/api/parse", jsonBody(t, types.ParseRequest{Text: testResume}), jsonHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var parsed types.ParseResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parsed))
	require.NotNil(t, parsed.Name)
	assert.Equal(t, "Jane Doe", *parsed.Name)
	assert.Equal(t, []string{"Go", "Redis", "PostgreSQL"}, parsed.Skills)
	assert.NotEmpty(t, parsed.ParsedID)
}

func TestParseRoute_InvalidJSON(t *testing.T) {
	h, _ := newTestServer(t, "")

	raw := []byte("{not json")
	resp := ut.PerformRequest(h.Engine, http.MethodPost, "/api/parse", &ut.Body{Body: bytes.NewReader(raw), Len: len(raw)}, jsonHeader)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid JSON body", decodeError(t, resp.Body.Bytes()))
}

func TestParseStructuredRoute(t *testing.T) {
	h, _ := newTestServer(t, "")

	resp := ut.PerformRequest(h.Engine, http.MethodPost, "/api/parse/structured", jsonBody(t, types.ParseRequest{Text: testResume}), jsonHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var parsed types.StructuredParseResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parsed))
	assert.NotEmpty(t, parsed.Sections)
	assert.Greater(t, parsed.Metadata.LineCount, 0)
}

func TestChatRoute(t *testing.T) {
	h, _ := newTestServer(t, "")

	resp := ut.PerformRequest(h.Engine, http.MethodPost, "/api/chat", jsonBody(t, map[string]any{"question": "skills?"}), jsonHeader)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "parsedJson and question are required", decodeError(t, resp.Body.Bytes()))

	resp = ut.PerformRequest(h.Engine, http.MethodPost, "/api/chat", jsonBody(t, types.ChatRequest{ParsedID: "unknown", Question: "skills?"}), jsonHeader)
	require.Equal(t, http.StatusNotFound, resp.Code)

	parsed := types.ParsedResume{Name: types.StrPtr("Jane Doe"), Skills: []string{"Go"}}
	resp = ut.PerformRequest(h.Engine, http.MethodPost, "/api/chat",
		jsonBody(t, types.ChatRequest{ParsedJSON: &parsed, Question: "What is my name?", UseGroq: true}), jsonHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var answer types.ChatResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &answer))
	assert.Equal(t, types.SourceRuleBased, answer.Source)
	assert.Contains(t, answer.Text, "Jane Doe")
}

func TestChatRoute_ByParsedID(t *testing.T) {
	h, _ := newTestServer(t, "")

	resp := ut.PerformRequest(h.Engine, http.MethodPost, "/api/parse", jsonBody(t, types.ParseRequest{Text: testResume}), jsonHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	var parsed types.ParseResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parsed))

	resp = ut.PerformRequest(h.Engine, http.MethodPost, "/api/chat",
		jsonBody(t, types.ChatRequest{ParsedID: parsed.ParsedID, Question: "Which technology do I use most?"}), jsonHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var answer types.ChatResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &answer))
	assert.Equal(t, "Your skills include: Go, Redis, PostgreSQL", answer.Text)
}

func TestUploadRoute(t *testing.T) {
	h, _ := newTestServer(t, "")

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "cv.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte(testResume))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp := ut.PerformRequest(h.Engine, http.MethodPost, "/api/upload",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: writer.FormDataContentType()},
	)
	require.Equal(t, http.StatusOK, resp.Code)

	var uploaded types.UploadResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &uploaded))
	assert.Equal(t, "cv.txt", uploaded.Filename)
	require.NotNil(t, uploaded.Email)
	assert.Equal(t, "jane.doe@example.com", *uploaded.Email)
}

func TestUploadRoute_Rejections(t *testing.T) {
	h, _ := newTestServer(t, "")

	resp := ut.PerformRequest(h.Engine, http.MethodPost, "/api/upload", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "cv.docx")
	require.NoError(t, err)
	_, err = part.Write([]byte("PK"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp = ut.PerformRequest(h.Engine, http.MethodPost, "/api/upload",
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: writer.FormDataContentType()},
	)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSendEmailRoute_APIKey(t *testing.T) {
	h, sender := newTestServer(t, "secret")
	req := types.SendEmailRequest{To: "a@b.co", Subject: "Hi", Body: "Hello"}

	resp := ut.PerformRequest(h.Engine, http.MethodPost, "/api/send-email", jsonBody(t, req), jsonHeader)
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "Forbidden - Invalid API key", decodeError(t, resp.Body.Bytes()))

	resp = ut.PerformRequest(h.Engine, http.MethodPost, "/api/send-email", jsonBody(t, req), jsonHeader,
		ut.Header{Key: APIKeyHeader, Value: "wrong"})
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, 0, sender.calls)

	resp = ut.PerformRequest(h.Engine, http.MethodPost, "/api/send-email", jsonBody(t, types.SendEmailRequest{To: "a@b.co"}), jsonHeader,
		ut.Header{Key: APIKeyHeader, Value: "secret"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "to, subject, and body are required", decodeError(t, resp.Body.Bytes()))

	resp = ut.PerformRequest(h.Engine, http.MethodPost, "/api/send-email", jsonBody(t, req), jsonHeader,
		ut.Header{Key: APIKeyHeader, Value: "secret"})
	require.Equal(t, http.StatusOK, resp.Code)

	var result notify.SendResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "msg-42", result.MessageID)
	assert.Equal(t, "SendGrid", result.Provider)
	assert.Equal(t, 1, sender.calls)
}

func TestSendEmailRoute_NoAPIKeyConfigured(t *testing.T) {
	h, sender := newTestServer(t, "")

	resp := ut.PerformRequest(h.Engine, http.MethodPost, "/api/send-email",
		jsonBody(t, types.SendEmailRequest{To: "a@b.co", Subject: "Hi", Body: "Hello"}), jsonHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, sender.calls)
}
