package types

import (
	"strings"
	"time"
)

// ParsedResume 简历字段抽取结果
// 每次解析都会生成新的记录，解析完成后不再修改
type ParsedResume struct {
	Name           *string   `json:"name"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	Skills         []string  `json:"skills"`
	Jobs           []string  `json:"jobs"`
	Education      []string  `json:"education"`
	Certifications []string  `json:"certifications"`
	Summary        *string   `json:"summary"`
	Raw            string    `json:"raw"`
	ParsedAt       time.Time `json:"parsedAt"`
}

// Section 章节切分结果
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ResumeMetadata 文档统计信息
type ResumeMetadata struct {
	WordCount    int  `json:"wordCount"`
	LineCount    int  `json:"lineCount"`
	HasStructure bool `json:"hasStructure"`
}

// StructuredResume 在 ParsedResume 基础上附带章节和统计信息
type StructuredResume struct {
	ParsedResume
	Sections []Section      `json:"sections"`
	Metadata ResumeMetadata `json:"metadata"`
}

// 回答来源
const (
	SourceRuleBased = "rule-based"
	SourceError     = "error"
)

// ChatResponse 问答结果
type ChatResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// StrPtr 返回字符串指针，空白字符串返回 nil
func StrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// StrValue 解引用，nil 返回空字符串
func StrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Normalized 返回一份规范化的副本，用于处理调用方传入的外部记录
// 空白的可选字段置为 nil，列表字段去空、去重且不为 nil
func (p ParsedResume) Normalized() ParsedResume {
	out := p
	out.Name = StrPtr(StrValue(p.Name))
	out.Email = StrPtr(StrValue(p.Email))
	out.Phone = StrPtr(StrValue(p.Phone))
	out.Summary = StrPtr(StrValue(p.Summary))
	out.Skills = cleanList(p.Skills)
	out.Jobs = cleanList(p.Jobs)
	out.Education = cleanList(p.Education)
	out.Certifications = cleanList(p.Certifications)
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
