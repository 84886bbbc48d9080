package types

// ParseRequest /api/parse 和 /api/parse/structured 请求体
type ParseRequest struct {
	Text string `json:"text"`
}

// ParseResponse 解析结果，附带可在问答中引用的 parsedId
type ParseResponse struct {
	ParsedResume
	ParsedID string `json:"parsedId,omitempty"`
}

// StructuredParseResponse 结构化解析结果
type StructuredParseResponse struct {
	StructuredResume
	ParsedID string `json:"parsedId,omitempty"`
}

// UploadResponse 上传解析结果
type UploadResponse struct {
	ParsedResume
	ParsedID  string `json:"parsedId,omitempty"`
	Filename  string `json:"filename"`
	ObjectKey string `json:"objectKey,omitempty"` // 归档后的对象键
}

// ChatRequest 问答请求，parsedJson 和 parsedId 二选一，同时提供时以 parsedJson 为准
type ChatRequest struct {
	ParsedJSON *ParsedResume `json:"parsedJson"`
	ParsedID   string        `json:"parsedId"`
	Question   string        `json:"question"`
	UseGroq    bool          `json:"useGroq"`
}

// SendEmailRequest 发信请求
type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse 健康检查
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}
