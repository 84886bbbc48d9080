package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"cv-assistant-go/internal/api/handler"
	"cv-assistant-go/internal/logger"
	"cv-assistant-go/internal/types"
)

const (
	ServerName    = "cv-assistant"
	ServerVersion = "1.0.0"
)

// ParseResumeInput parse_resume 参数
type ParseResumeInput struct {
	Text string `json:"text" jsonschema:"The resume text to parse"`
}

// ChatAboutResumeInput chat_about_resume 参数
// parsedResume 使用通用对象，具体字段由 ParsedResume 解码
type ChatAboutResumeInput struct {
	ParsedResume map[string]any `json:"parsedResume,omitempty" jsonschema:"The parsed resume object returned by parse_resume"`
	ParsedID     string         `json:"parsedId,omitempty" jsonschema:"ID of a previously parsed resume, used when parsedResume is omitted"`
	Question     string         `json:"question" jsonschema:"The question to ask about the resume"`
	UseGroq      bool           `json:"useGroq,omitempty" jsonschema:"Whether to use the external language model for answering (default false)"`
}

// SendEmailInput send_email 参数
type SendEmailInput struct {
	To      string `json:"to" jsonschema:"Recipient email address"`
	Subject string `json:"subject" jsonschema:"Email subject"`
	Body    string `json:"body" jsonschema:"Email body in plain text"`
}

// NewServer 创建 MCP server 并注册全部工具
func NewServer(h *handler.ResumeHandler) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)

	registerParseResume(server, h)
	registerChatAboutResume(server, h)
	registerSendEmail(server, h)
	return server
}

// Run 在 stdio 上运行，直到客户端断开或 ctx 取消
func Run(ctx context.Context, server *mcp.Server) error {
	logger.Info().Str("name", ServerName).Msg("MCP server 以 stdio 模式运行")
	return server.Run(ctx, &mcp.StdioTransport{})
}

func registerParseResume(server *mcp.Server, h *handler.ResumeHandler) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_resume",
		Description: "Parse resume text and extract structured information (name, email, phone, skills, work experience, education)",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ParseResumeInput) (*mcp.CallToolResult, any, error) {
		parsed, err := h.Parse(ctx, input.Text)
		if err != nil {
			return errorResult("Failed to parse resume: " + err.Error()), nil, nil
		}
		raw, err := json.MarshalIndent(parsed, "", "  ")
		if err != nil {
			return nil, nil, fmt.Errorf("encode parsed resume: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: parseSummary(&parsed.ParsedResume)},
				&mcp.TextContent{Text: string(raw)},
			},
		}, nil, nil
	})
}

func registerChatAboutResume(server *mcp.Server, h *handler.ResumeHandler) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat_about_resume",
		Description: "Answer questions about a parsed resume",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ChatAboutResumeInput) (*mcp.CallToolResult, any, error) {
		req := &types.ChatRequest{ParsedID: input.ParsedID, Question: input.Question, UseGroq: input.UseGroq}
		if input.ParsedResume != nil {
			parsed, err := decodeParsedResume(input.ParsedResume)
			if err != nil {
				return errorResult("Invalid parsedResume: " + err.Error()), nil, nil
			}
			req.ParsedJSON = parsed
		}

		resp, err := h.Chat(ctx, req)
		if err != nil {
			return errorResult("Failed to answer question: " + err.Error()), nil, nil
		}
		return textResult(resp.Text), nil, nil
	})
}

func registerSendEmail(server *mcp.Server, h *handler.ResumeHandler) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_email",
		Description: "Send an email notification",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input SendEmailInput) (*mcp.CallToolResult, any, error) {
		result, err := h.SendEmail(ctx, &types.SendEmailRequest{To: input.To, Subject: input.Subject, Body: input.Body})
		if err != nil {
			return errorResult("Failed to send email: " + err.Error()), nil, nil
		}
		messageID := result.MessageID
		if messageID == "" {
			messageID = "N/A"
		}
		return textResult(fmt.Sprintf("Email sent successfully to %s!\nSubject: %s\nMessage ID: %s", input.To, input.Subject, messageID)), nil, nil
	})
}

// parseSummary 解析结果的简要说明
func parseSummary(p *types.ParsedResume) string {
	var b strings.Builder
	b.WriteString("Resume parsed successfully!\n\nExtracted Information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orNotFound(p.Name))
	fmt.Fprintf(&b, "- Email: %s\n", orNotFound(p.Email))
	fmt.Fprintf(&b, "- Phone: %s\n", orNotFound(p.Phone))
	fmt.Fprintf(&b, "- Skills: %d found\n", len(p.Skills))
	fmt.Fprintf(&b, "- Work Experience: %d positions found\n", len(p.Jobs))
	fmt.Fprintf(&b, "- Education: %d entries found", len(p.Education))
	return b.String()
}

func orNotFound(s *string) string {
	if s == nil {
		return "Not found"
	}
	return *s
}

func decodeParsedResume(obj map[string]any) (*types.ParsedResume, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var parsed types.ParsedResume
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
