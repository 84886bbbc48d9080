package parser

import (
	"regexp"
	"strings"

	"cv-assistant-go/internal/types"
)

// sectionVocabulary 章节标题词表，按此顺序逐个匹配
var sectionVocabulary = []string{
	"experience",
	"work experience",
	"employment",
	"education",
	"academic background",
	"skills",
	"technical skills",
	"technologies",
	"projects",
	"achievements",
	"accomplishments",
	"certifications",
	"certificates",
	"summary",
	"objective",
	"profile",
}

// 只用于判断章节边界的其他常见标题
var boundaryHeaders = []string{
	"professional experience", "employment history", "work history",
	"professional summary", "career summary", "career objective", "about me",
	"core competencies", "personal projects", "academic projects",
	"licenses", "licenses & certifications", "awards", "honors",
	"interests", "hobbies", "publications", "references", "volunteer experience",
	"volunteering", "contact", "contact information", "academic qualifications",
	"educational background",
}

// 这些标题常以 "Technologies: Go, Redis" 的形式出现在条目内部，带行内内容时不视为章节边界
var inlineNeutralHeaders = map[string]struct{}{
	"skills":            {},
	"technical skills":  {},
	"technologies":      {},
	"core competencies": {},
}

var headerKeywordRegex = regexp.MustCompile(`(?i)experience|employment|education|academic|skill|project|summary|objective|profile|certif|licen|award|achievement|accomplishment|interest|language|reference|publication|volunteer|contact|competenc|technolog`)

var (
	headerSet      = buildHeaderSet()
	sectionRegexes = buildSectionRegexes()
)

func buildHeaderSet() map[string]struct{} {
	set := make(map[string]struct{}, len(sectionVocabulary)+len(boundaryHeaders))
	for _, h := range sectionVocabulary {
		set[h] = struct{}{}
	}
	for _, h := range boundaryHeaders {
		set[h] = struct{}{}
	}
	return set
}

// headerLinePattern 生成行首标题的正则，标题后只能是行尾或 ":"/"-" 引出的行内内容
// 第 1 组为标题原文，第 2 组为行内内容
func headerLinePattern(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t#*•·\-]*(` + alternatives + `)[ \t]*(?:[:\-–][ \t]*(.*))?$`)
}

func buildSectionRegexes() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(sectionVocabulary))
	for _, h := range sectionVocabulary {
		res = append(res, headerLinePattern(regexp.QuoteMeta(h)))
	}
	return res
}

// isHeaderLine 判断一行是否像章节标题
func isHeaderLine(line string) bool {
	t := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#*•·-–"))
	if t == "" {
		return false
	}
	core := strings.TrimSpace(strings.TrimRight(t, ":"))
	if i := strings.IndexAny(core, ":-–"); i >= 0 {
		// "Education: BS ..." 这种带行内内容的写法
		key := strings.ToLower(strings.TrimSpace(core[:i]))
		if _, neutral := inlineNeutralHeaders[key]; neutral {
			return false
		}
		_, ok := headerSet[key]
		return ok
	}
	if _, ok := headerSet[strings.ToLower(core)]; ok {
		return true
	}
	// 全大写且含标题关键字，如 "PROFESSIONAL EXPERIENCE"、"SKILLS & TOOLS"
	return isAllCapsTitle(core) && headerKeywordRegex.MatchString(core)
}

// captureSpan 从标题行之后截取内容，直到下一个标题行或文末
// stopAtBlank 为 true 时遇到空行也结束；内容开始前的空行总会被跳过
func captureSpan(text string, loc []int, stopAtBlank bool) string {
	var collected []string
	if loc[4] >= 0 {
		if inline := strings.TrimSpace(text[loc[4]:loc[5]]); inline != "" {
			collected = append(collected, inline)
		}
	}

	rest := text[loc[1]:]
	lines := strings.Split(rest, "\n")
	if len(lines) > 0 {
		// 第一个元素是标题行剩余部分，已经包含在匹配中
		lines = lines[1:]
	}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			if len(collected) > 0 && stopAtBlank {
				break
			}
			if len(collected) > 0 {
				collected = append(collected, "")
			}
			continue
		}
		if isHeaderLine(line) {
			break
		}
		collected = append(collected, line)
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}

// findHeaderSpan 找到第一个匹配的标题并返回其内容
func findHeaderSpan(text string, re *regexp.Regexp, stopAtBlank bool) (title, content string, ok bool) {
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		content = captureSpan(text, loc, stopAtBlank)
		if content != "" {
			return text[loc[2]:loc[3]], content, true
		}
	}
	return "", "", false
}

// segment 按词表切分章节，每个标题最多产出一个章节
func segment(text string) []types.Section {
	sections := make([]types.Section, 0)
	if strings.TrimSpace(text) == "" {
		return sections
	}
	for _, re := range sectionRegexes {
		title, content, ok := findHeaderSpan(text, re, false)
		if !ok {
			continue
		}
		sections = append(sections, types.Section{Title: title, Content: content})
	}
	return sections
}

// SegmentSections 对外暴露的章节切分
func SegmentSections(text string) []types.Section {
	return segment(lineBreakRegex.ReplaceAllString(text, "\n"))
}
