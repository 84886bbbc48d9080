package parser

import (
	"regexp"
	"strings"
)

var (
	educationHeaderRegex = headerLinePattern(`education(?:al background)?|academic background|academic qualifications`)
	// 没有独立标题时，退回到包含学历关键字的行
	educationKeywordRegex = regexp.MustCompile(`(?im)^[^\n]*\b(?:degree|university|college|bachelor|master|phd|ph\.d)\b[^\n]*$`)
	degreeRegex           = regexp.MustCompile(`(?i)\b(?:bachelor'?s?|master'?s?|b\.?sc?|m\.?sc?|ph\.?d|mba|associate|diploma)\b`)
	institutionRegex      = regexp.MustCompile(`(?i)\b(?:university|college|institute|school|academy)\b`)

	certificationHeaderRegex = headerLinePattern(`licenses[ \t]*(?:&|and)[ \t]*certifications|certifications?|certificates?|licenses?`)
	summaryHeaderRegex       = headerLinePattern(`professional summary|career summary|summary|career objective|objective|profile|about me`)
)

// extractEducation 优先提取 "学位 + 院校" 条目，失败时返回整个片段
func (e *extractor) extractEducation(doc *Document) []string {
	span := educationSpan(doc.Text)
	if span == "" {
		return []string{}
	}

	list := newUniqueList(0)
	lines := SplitLines(span)
	for i, line := range lines {
		if !degreeRegex.MatchString(line) {
			continue
		}
		entry := stripBullet(line)
		if !institutionRegex.MatchString(entry) {
			if i+1 >= len(lines) || !institutionRegex.MatchString(lines[i+1]) {
				continue
			}
			entry += ", " + stripBullet(lines[i+1])
		}
		list.add(entry)
	}
	if list.len() == 0 {
		list.add(span)
	}
	return list.items
}

func educationSpan(text string) string {
	if _, span, ok := findHeaderSpan(text, educationHeaderRegex, true); ok {
		return span
	}
	loc := educationKeywordRegex.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	// 关键字所在行本身作为片段第一行，伪造一个空的行内分组
	first := strings.TrimSpace(text[loc[0]:loc[1]])
	rest := captureSpan(text, []int{loc[0], loc[1], loc[0], loc[1], -1, -1}, true)
	return strings.TrimSpace(first + "\n" + rest)
}

// extractCertifications 证书章节按行拆成条目
func (e *extractor) extractCertifications(doc *Document) []string {
	list := newUniqueList(0)
	_, span, ok := findHeaderSpan(doc.Text, certificationHeaderRegex, true)
	if !ok {
		return list.items
	}
	for _, item := range bulletSplitRegex.Split(span, -1) {
		list.add(stripBullet(item))
	}
	return list.items
}

// extractSummary 只取第一个段落，合并为一行
func (e *extractor) extractSummary(doc *Document) (string, bool) {
	_, span, ok := findHeaderSpan(doc.Text, summaryHeaderRegex, true)
	if !ok {
		return "", false
	}
	return strings.Join(SplitLines(span), " "), true
}
