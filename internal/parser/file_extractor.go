package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"
)

// ErrUnsupportedFileType 不支持的上传文件类型
var ErrUnsupportedFileType = errors.New("unsupported file type")

// ErrEmptyDocument 文件中没有可用文本
var ErrEmptyDocument = errors.New("no text found in document")

// TextExtractor 把上传的文件转换为纯文本
type TextExtractor interface {
	ExtractText(ctx context.Context, filename string, data []byte) (string, error)
}

var (
	docxParagraphEndRe = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTagRe           = regexp.MustCompile(`<[^>]+>`)
)

// DocxTextExtractor 读取 docx 中 document.xml 的文本
type DocxTextExtractor struct{}

// ExtractText 实现 TextExtractor
func (DocxTextExtractor) ExtractText(_ context.Context, filename string, data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx %s: %w", filename, err)
	}
	defer doc.Close()

	return docxXMLToText(doc.Editable().GetContent()), nil
}

// docxXMLToText 段落结束转为换行，去掉其余标签
func docxXMLToText(content string) string {
	content = docxParagraphEndRe.ReplaceAllStringFunc(content, func(tag string) string {
		if tag == "<w:tab/>" {
			return "\t"
		}
		return "\n"
	})
	content = xmlTagRe.ReplaceAllString(content, "")
	return strings.TrimSpace(html.UnescapeString(content))
}

// PlainTextExtractor 纯文本文件
type PlainTextExtractor struct{}

// ExtractText 实现 TextExtractor
func (PlainTextExtractor) ExtractText(_ context.Context, filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", filename)
	}
	return string(data), nil
}

// FileTextExtractor 按扩展名分发到具体的提取器
type FileTextExtractor struct {
	byExt map[string]TextExtractor
}

// NewFileTextExtractor pdf 为 nil 时不支持 PDF
func NewFileTextExtractor(pdf TextExtractor) *FileTextExtractor {
	f := &FileTextExtractor{byExt: map[string]TextExtractor{
		".docx": DocxTextExtractor{},
		".txt":  PlainTextExtractor{},
		".md":   PlainTextExtractor{},
	}}
	if pdf != nil {
		f.byExt[".pdf"] = pdf
	}
	return f
}

// Supports 判断扩展名是否受支持
func (f *FileTextExtractor) Supports(filename string) bool {
	_, ok := f.byExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ExtractText 实现 TextExtractor
func (f *FileTextExtractor) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	extractor, ok := f.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
	text, err := extractor.ExtractText(ctx, filename, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
