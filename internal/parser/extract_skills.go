package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	skillsHeaderRegex  = headerLinePattern(`technical skills|technical proficiencies|core competencies|skills`)
	skillCategoryRegex = regexp.MustCompile(`^([^:]{2,40}):\s*(.+)$`)
	// 常见技能分类标签行，如 "Programming Languages: Python, Go"
	categoryLabelRegex = regexp.MustCompile(`(?im)^[ \t•*·▪\-]*(?:programming languages|languages|frameworks(?:[ \t]*&[ \t]*libraries)?|libraries|databases|cloud[ \t]*&[ \t]*devops|cloud|devops|tools(?:[ \t]*&[ \t]*technologies)?|web technologies|testing|operating systems|platforms|other)[ \t]*:[ \t]*(.+)$`)
	// 最后的兜底：标签后直到空行或下一个大写开头的行
	genericSkillsRegex = regexp.MustCompile(`(?s)(?i:technical skills?|skills?|technologies|technology|programming languages?)[:\-]?\s*(.+?)(?:\n\s*\n|\n[A-Z]|$)`)

	bulletSplitRegex  = regexp.MustCompile(`[•·▪\n]`)
	genericSplitRegex = regexp.MustCompile(`[,•·▪\n]`)
)

// extractSkills 三级递进：技能章节中的分类条目、全文分类标签行、通用标签兜底
func (e *extractor) extractSkills(doc *Document) []string {
	list := newUniqueList(e.cfg.MaxSkills)

	for _, loc := range skillsHeaderRegex.FindAllStringSubmatchIndex(doc.Text, -1) {
		span := captureSpan(doc.Text, loc, false)
		if span == "" {
			continue
		}
		// "Skills: Python, Go" 标题行内的列表，后面可能还跟着分类行
		if loc[4] >= 0 {
			if inline := strings.TrimSpace(doc.Text[loc[4]:loc[5]]); inline != "" && strings.HasPrefix(span, inline) {
				if m := skillCategoryRegex.FindStringSubmatch(inline); m != nil {
					addSkillTokens(list, m[2], 2)
				} else {
					addGenericSkillTokens(list, inline)
				}
				span = span[len(inline):]
			}
		}
		for _, item := range bulletSplitRegex.Split(span, -1) {
			m := skillCategoryRegex.FindStringSubmatch(stripBullet(item))
			if m == nil {
				continue
			}
			addSkillTokens(list, m[2], 2)
		}
		break
	}

	if list.len() < e.cfg.SkillsMinCount {
		for _, m := range categoryLabelRegex.FindAllStringSubmatch(doc.Text, -1) {
			addSkillTokens(list, m[1], 2)
		}
	}

	if list.len() == 0 {
		if m := genericSkillsRegex.FindStringSubmatch(doc.Text); m != nil {
			addGenericSkillTokens(list, m[1])
		}
	}
	return list.items
}

// addGenericSkillTokens 按逗号、项目符号和换行切分，允许单字符技能
func addGenericSkillTokens(list *uniqueList, s string) {
	for _, token := range genericSplitRegex.Split(s, -1) {
		token = cleanSkillToken(token)
		if n := utf8.RuneCountInString(token); n >= 1 && n < 40 {
			if !list.add(token) {
				return
			}
		}
	}
}

// addSkillTokens 逗号切分后加入列表，长度在 [minLen, 40) 之间的才保留
func addSkillTokens(list *uniqueList, csv string, minLen int) {
	for _, token := range strings.Split(csv, ",") {
		token = cleanSkillToken(token)
		if n := utf8.RuneCountInString(token); n >= minLen && n < 40 {
			if !list.add(token) {
				return
			}
		}
	}
}

func cleanSkillToken(token string) string {
	return strings.TrimRight(stripBullet(token), ".;")
}
