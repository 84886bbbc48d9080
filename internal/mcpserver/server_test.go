package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-assistant-go/internal/api/handler"
	"cv-assistant-go/internal/notify"
	"cv-assistant-go/internal/types"
)

const testResume = `Jane Doe
jane.doe@example.com | +44 20 7946 0958

Skills
Go, Redis, PostgreSQL
`

type stubSender struct {
	result *notify.SendResult
	err    error
}

func (s *stubSender) Send(context.Context, string, string, string) (*notify.SendResult, error) {
	return s.result, s.err
}

func connect(t *testing.T, sender notify.EmailSender) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer(handler.NewResumeHandler(handler.Dependencies{Mailer: sender}))

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func texts(t *testing.T, res *mcp.CallToolResult) []string {
	t.Helper()
	out := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		tc, ok := c.(*mcp.TextContent)
		require.True(t, ok, "unexpected content type %T", c)
		out = append(out, tc.Text)
	}
	return out
}

func TestListTools(t *testing.T) {
	session := connect(t, nil)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"parse_resume", "chat_about_resume", "send_email"}, names)
}

func TestParseResumeTool(t *testing.T) {
	session := connect(t, nil)

	res := callTool(t, session, "parse_resume", map[string]any{"text": testResume})
	require.False(t, res.IsError)
	out := texts(t, res)
	require.Len(t, out, 2)

	assert.Equal(t, "Resume parsed successfully!\n\nExtracted Information:\n"+
		"- Name: Jane Doe\n"+
		"- Email: jane.doe@example.com\n"+
		"- Phone: +44 20 7946 0958\n"+
		"- Skills: 3 found\n"+
		"- Work Experience: 0 positions found\n"+
		"- Education: 0 entries found", out[0])

	var parsed types.ParseResponse
	require.NoError(t, json.Unmarshal([]byte(out[1]), &parsed))
	assert.Equal(t, []string{"Go", "Redis", "PostgreSQL"}, parsed.Skills)
	assert.NotEmpty(t, parsed.ParsedID)
}

func TestParseResumeTool_EmptyText(t *testing.T) {
	session := connect(t, nil)

	res := callTool(t, session, "parse_resume", map[string]any{"text": "  "})
	assert.True(t, res.IsError)
}

func TestChatAboutResumeTool(t *testing.T) {
	session := connect(t, nil)

	res := callTool(t, session, "chat_about_resume", map[string]any{
		"parsedResume": map[string]any{
			"name":   "Jane Doe",
			"skills": []string{"Go", "Kafka"},
		},
		"question": "What skills do I have?",
	})
	require.False(t, res.IsError)
	assert.Equal(t, []string{"Your skills include: Go, Kafka"}, texts(t, res))
}

func TestChatAboutResumeTool_ByParsedID(t *testing.T) {
	session := connect(t, nil)

	parsedRes := callTool(t, session, "parse_resume", map[string]any{"text": testResume})
	var parsed types.ParseResponse
	require.NoError(t, json.Unmarshal([]byte(texts(t, parsedRes)[1]), &parsed))

	res := callTool(t, session, "chat_about_resume", map[string]any{
		"parsedId": parsed.ParsedID,
		"question": "What is my email?",
	})
	require.False(t, res.IsError)
	assert.Equal(t, []string{"Your contact information: Email: jane.doe@example.com, Phone: +44 20 7946 0958"}, texts(t, res))
}

func TestSendEmailTool(t *testing.T) {
	session := connect(t, &stubSender{result: &notify.SendResult{Success: true, Provider: "SMTP"}})

	res := callTool(t, session, "send_email", map[string]any{"to": "a@b.co", "subject": "Hi", "body": "Hello"})
	require.False(t, res.IsError)
	assert.Equal(t, []string{"Email sent successfully to a@b.co!\nSubject: Hi\nMessage ID: N/A"}, texts(t, res))
}

func TestSendEmailTool_Failure(t *testing.T) {
	session := connect(t, &stubSender{err: errors.New("smtp down")})

	res := callTool(t, session, "send_email", map[string]any{"to": "a@b.co", "subject": "Hi", "body": "Hello"})
	require.True(t, res.IsError)
	assert.Equal(t, []string{"Failed to send email: smtp down"}, texts(t, res))
}

func TestParseSummaryNotFound(t *testing.T) {
	summary := parseSummary(&types.ParsedResume{})
	assert.Contains(t, summary, "- Name: Not found\n")
	assert.Contains(t, summary, "- Email: Not found\n")
	assert.Contains(t, summary, "- Phone: Not found\n")
}
