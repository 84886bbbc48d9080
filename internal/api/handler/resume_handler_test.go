package handler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-assistant-go/internal/config"
	"cv-assistant-go/internal/notify"
	"cv-assistant-go/internal/parser"
	"cv-assistant-go/internal/storage"
	"cv-assistant-go/internal/types"
)

const testResume = `Jane Doe
jane.doe@example.com | +44 20 7946 0958

Summary
Backend engineer focused on Go services.

Skills
Go, Redis, PostgreSQL

Education
BS Computer Science, MIT
`

type fakeSender struct {
	calls  int
	to     string
	result *notify.SendResult
	err    error
}

func (f *fakeSender) Send(_ context.Context, to, _, _ string) (*notify.SendResult, error) {
	f.calls++
	f.to = to
	return f.result, f.err
}

type fakeArchive struct {
	calls int
	data  []byte
	err   error
}

func (f *fakeArchive) ArchiveOriginal(_ context.Context, parseID, filename string, data []byte) (string, string, error) {
	f.calls++
	f.data = data
	if f.err != nil {
		return "", "", f.err
	}
	return "originals/" + parseID + "/original.txt", "md5", nil
}

type brokenCache struct{}

func (brokenCache) Save(context.Context, string, *types.ParsedResume) error {
	return errors.New("cache down")
}

func (brokenCache) Load(context.Context, string) (*types.ParsedResume, error) {
	return nil, errors.New("cache down")
}

func newTestHandler(deps Dependencies) *ResumeHandler {
	if deps.Upload.MaxSizeMB == 0 {
		deps.Upload = config.UploadConfig{MaxSizeMB: 1, AllowedExtensions: []string{".pdf", ".docx", ".txt", ".md"}}
	}
	return NewResumeHandler(deps)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(Dependencies{ServiceName: "CV Assistant MCP Server"})
	h.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	resp := h.Health()
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "CV Assistant MCP Server", resp.Service)
	assert.Equal(t, "2024-03-01T12:00:00.000Z", resp.Timestamp)
}

func TestParse_CachesResult(t *testing.T) {
	cache := storage.NewMemoryResumeCache(time.Hour, 10)
	h := newTestHandler(Dependencies{Cache: cache})

	resp, err := h.Parse(context.Background(), testResume)
	require.NoError(t, err)
	require.NotNil(t, resp.Name)
	assert.Equal(t, "Jane Doe", *resp.Name)
	require.NotEmpty(t, resp.ParsedID)

	cached, err := cache.Load(context.Background(), resp.ParsedID)
	require.NoError(t, err)
	assert.Equal(t, resp.Skills, cached.Skills)
}

func TestParse_TextRequired(t *testing.T) {
	h := newTestHandler(Dependencies{})
	for _, text := range []string{"", "  \n\t"} {
		_, err := h.Parse(context.Background(), text)
		assert.ErrorIs(t, err, ErrTextRequired)
		_, err = h.ParseStructured(context.Background(), text)
		assert.ErrorIs(t, err, ErrTextRequired)
	}
}

func TestParse_CacheFailureStillReturnsResult(t *testing.T) {
	h := newTestHandler(Dependencies{Cache: brokenCache{}})

	resp, err := h.Parse(context.Background(), testResume)
	require.NoError(t, err)
	assert.Empty(t, resp.ParsedID)
	assert.Equal(t, []string{"Go", "Redis", "PostgreSQL"}, resp.Skills)
}

func TestParseStructured(t *testing.T) {
	h := newTestHandler(Dependencies{})

	resp, err := h.ParseStructured(context.Background(), testResume)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ParsedID)
	assert.NotEmpty(t, resp.Sections)
	assert.True(t, resp.Metadata.HasStructure)
	assert.Greater(t, resp.Metadata.WordCount, 0)
}

func TestChat_ByParsedID(t *testing.T) {
	h := newTestHandler(Dependencies{})
	parsed, err := h.Parse(context.Background(), testResume)
	require.NoError(t, err)

	resp, err := h.Chat(context.Background(), &types.ChatRequest{ParsedID: parsed.ParsedID, Question: "What are my skills?"})
	require.NoError(t, err)
	assert.Equal(t, "Your skills include: Go, Redis, PostgreSQL", resp.Text)
	assert.Equal(t, types.SourceRuleBased, resp.Source)
	assert.InDelta(t, 0.9, resp.Confidence, 1e-9)
}

func TestChat_ParsedJSONNormalized(t *testing.T) {
	h := newTestHandler(Dependencies{})
	email := "  "
	req := &types.ChatRequest{
		ParsedJSON: &types.ParsedResume{Email: &email, Phone: types.StrPtr("+1 555 0100")},
		Question:   "How can I contact you?",
	}

	resp, err := h.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Your contact information: Phone: +1 555 0100", resp.Text)
}

func TestChat_Errors(t *testing.T) {
	h := newTestHandler(Dependencies{})

	_, err := h.Chat(context.Background(), &types.ChatRequest{Question: "skills?"})
	assert.ErrorIs(t, err, ErrChatFieldsRequired)

	_, err = h.Chat(context.Background(), &types.ChatRequest{ParsedJSON: &types.ParsedResume{}, Question: "  "})
	assert.ErrorIs(t, err, ErrChatFieldsRequired)

	_, err = h.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, ErrChatFieldsRequired)

	_, err = h.Chat(context.Background(), &types.ChatRequest{ParsedID: "missing", Question: "skills?"})
	assert.ErrorIs(t, err, ErrParsedNotFound)

	broken := newTestHandler(Dependencies{Cache: brokenCache{}})
	_, err = broken.Chat(context.Background(), &types.ChatRequest{ParsedID: "any", Question: "skills?"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrParsedNotFound)
}

func TestUpload_TextFile(t *testing.T) {
	archive := &fakeArchive{}
	h := newTestHandler(Dependencies{Archive: archive})

	resp, err := h.Upload(context.Background(), strings.NewReader(testResume), int64(len(testResume)), "cv.txt")
	require.NoError(t, err)
	require.NotNil(t, resp.Email)
	assert.Equal(t, "jane.doe@example.com", *resp.Email)
	assert.Equal(t, "cv.txt", resp.Filename)
	assert.NotEmpty(t, resp.ParsedID)
	assert.Equal(t, "originals/"+resp.ParsedID+"/original.txt", resp.ObjectKey)
	assert.Equal(t, 1, archive.calls)
	assert.Equal(t, []byte(testResume), archive.data)
}

func TestUpload_ArchiveFailureIgnored(t *testing.T) {
	archive := &fakeArchive{err: errors.New("minio down")}
	h := newTestHandler(Dependencies{Archive: archive})

	resp, err := h.Upload(context.Background(), strings.NewReader(testResume), int64(len(testResume)), "cv.md")
	require.NoError(t, err)
	assert.Empty(t, resp.ObjectKey)
	assert.NotEmpty(t, resp.ParsedID)
}

func TestUpload_Rejections(t *testing.T) {
	h := newTestHandler(Dependencies{})
	ctx := context.Background()

	_, err := h.Upload(ctx, strings.NewReader("x"), 1, "cv.exe")
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	// 未配置 PDF 提取器
	_, err = h.Upload(ctx, strings.NewReader("%PDF"), 4, "cv.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = h.Upload(ctx, strings.NewReader(""), 0, "cv.txt")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = h.Upload(ctx, strings.NewReader("x"), 2<<20, "cv.txt")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// 声明的大小可能不准确，以实际读取为准
	big := bytes.Repeat([]byte("a"), (1<<20)+10)
	_, err = h.Upload(ctx, bytes.NewReader(big), 10, "cv.txt")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = h.Upload(ctx, strings.NewReader("   \n "), 5, "cv.txt")
	assert.ErrorIs(t, err, parser.ErrEmptyDocument)
}

func TestSendEmail(t *testing.T) {
	sender := &fakeSender{result: &notify.SendResult{Success: true, MessageID: "id-1", Provider: "Brevo"}}
	h := newTestHandler(Dependencies{Mailer: sender})

	resp, err := h.SendEmail(context.Background(), &types.SendEmailRequest{To: "a@b.co", Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", resp.MessageID)
	assert.Equal(t, "a@b.co", sender.to)

	_, err = h.SendEmail(context.Background(), &types.SendEmailRequest{To: "a@b.co", Subject: " ", Body: "Hello"})
	assert.ErrorIs(t, err, ErrEmailFieldsRequired)
	assert.Equal(t, 1, sender.calls)
}

func TestSendEmail_NoMailer(t *testing.T) {
	h := newTestHandler(Dependencies{})

	_, err := h.SendEmail(context.Background(), &types.SendEmailRequest{To: "a@b.co", Subject: "Hi", Body: "Hello"})
	assert.ErrorIs(t, err, notify.ErrNoProvider)
}
