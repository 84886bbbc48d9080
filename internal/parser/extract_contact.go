package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	emailRegex = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	// 宽松匹配：可选的 +，至少 9 位数字、空格、括号或连字符组成的串
	phoneRegex = regexp.MustCompile(`\+?\d[\d .()\-]{7,}\d`)

	contactMarkerRegex = regexp.MustCompile(`(?i)\b(?:e-?mail|phone|tel|mobile)\b|\+\d|@`)
	nameLineRegex      = regexp.MustCompile(`(?m)^[ \t]*([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+)`)
)

// 第二阶段姓名识别时从行首尾剥离的装饰字符
const nameNoiseChars = "•*-|#·>~_=:–— \t"

// strategy 单个抽取策略，返回 false 表示未命中，交给下一个策略
type strategy[T any] func(doc *Document) (T, bool)

// firstOf 按顺序执行策略，返回第一个命中的结果
func firstOf[T any](doc *Document, strategies ...strategy[T]) (T, bool) {
	for _, s := range strategies {
		if v, ok := s(doc); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// extractEmail 全文第一个邮箱
func extractEmail(doc *Document) (string, bool) {
	m := emailRegex.FindString(doc.Text)
	return m, m != ""
}

// extractPhone 全文第一个电话号码串
func extractPhone(doc *Document) (string, bool) {
	m := phoneRegex.FindString(doc.Text)
	return strings.TrimSpace(m), m != ""
}

// nameBeforeContact 在第一个联系方式标记之前，找行首连续的首字母大写单词
func nameBeforeContact(doc *Document) (string, bool) {
	loc := contactMarkerRegex.FindStringIndex(doc.Text)
	if loc == nil || loc[0] == 0 {
		return "", false
	}
	m := nameLineRegex.FindStringSubmatch(doc.Text[:loc[0]])
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// nameFromLeadingLines 在前五行中找一个像姓名的行
func nameFromLeadingLines(doc *Document) (string, bool) {
	limit := min(5, len(doc.Lines))
	for _, line := range doc.Lines[:limit] {
		candidate := strings.Trim(line, nameNoiseChars)
		if looksLikeName(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func looksLikeName(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 3 || n > 40 {
		return false
	}
	if strings.Contains(s, "@") || strings.IndexFunc(s, unicode.IsDigit) >= 0 {
		return false
	}
	if len(strings.Fields(s)) < 2 {
		return false
	}
	if lower := strings.ToLower(s); strings.Contains(lower, "resume") || strings.Contains(lower, "cv") {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(first)
}

// extractName 依次尝试两种姓名识别策略
func extractName(doc *Document) (string, bool) {
	return firstOf[string](doc, nameBeforeContact, nameFromLeadingLines)
}
