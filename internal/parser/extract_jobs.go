package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	yearRegex = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	// 条目内的技术栈标记行，如 "Tech Stack: Go, Redis"
	techMarkerRegex = regexp.MustCompile(`(?i)^[\s•*·▪\-]*(?:tech(?:nology)?[ \t]*stack|technologies(?:[ \t]+used)?|tools(?:[ \t]+used)?|built[ \t]+with)[ \t]*:[ \t]*(.*)$`)
)

// 优先使用的章节，按顺序查找
var jobSectionTitles = []string{"projects", "work experience", "experience", "employment"}

type projectEntry struct {
	title string
	desc  []string
	tech  []string
}

// extractJobs 先尝试章节内的结构化条目，失败后退回按年份识别段落
func (e *extractor) extractJobs(doc *Document) []string {
	jobs, ok := firstOf[[]string](doc, e.jobsFromSections, e.jobsFromYearBlocks)
	if !ok {
		return []string{}
	}
	return jobs
}

func (e *extractor) jobsFromSections(doc *Document) ([]string, bool) {
	for _, title := range jobSectionTitles {
		sec, ok := doc.section(title)
		if !ok {
			continue
		}
		entries := splitProjectEntries(sec.Content)
		if len(entries) == 0 {
			continue
		}
		list := newUniqueList(e.cfg.MaxJobs)
		for _, entry := range entries {
			if !list.add(e.formatEntry(entry)) {
				break
			}
		}
		return list.items, true
	}
	return nil, false
}

// splitProjectEntries 以技术栈标记行作为条目结束，条目首行为标题
// 没有以标记行收尾的内容不算作条目
func splitProjectEntries(content string) []projectEntry {
	var (
		entries []projectEntry
		cur     *projectEntry
	)
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := techMarkerRegex.FindStringSubmatch(line); m != nil {
			if cur == nil {
				continue
			}
			cur.tech = splitTechList(m[1])
			entries = append(entries, *cur)
			cur = nil
			continue
		}
		if cur == nil {
			cur = &projectEntry{title: stripBullet(line)}
			continue
		}
		cur.desc = append(cur.desc, stripBullet(line))
	}
	return entries
}

func splitTechList(s string) []string {
	var out []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' || r == ';' }) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// formatEntry 输出 "标题: 描述 (Tech: a, b)"
func (e *extractor) formatEntry(entry projectEntry) string {
	var b strings.Builder
	b.WriteString(entry.title)
	if desc := strings.Join(entry.desc, " "); desc != "" {
		b.WriteString(": ")
		b.WriteString(ellipsize(desc, e.cfg.DescriptionLimit))
	}
	if len(entry.tech) > 0 {
		b.WriteString(" (Tech: ")
		b.WriteString(strings.Join(entry.tech, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// ellipsize 超过 limit 个字符时截断并以 "..." 结尾，结果不超过 limit
func ellipsize(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 3 {
		return truncateRunes(s, limit)
	}
	return strings.TrimSpace(truncateRunes(s, limit-3)) + "..."
}

// jobsFromYearBlocks 含有年份且长度超过 50 的段落视为一条经历
func (e *extractor) jobsFromYearBlocks(doc *Document) ([]string, bool) {
	list := newUniqueList(e.cfg.MaxJobs)
	for _, block := range doc.Blocks {
		if utf8.RuneCountInString(block) <= 50 || !yearRegex.MatchString(block) {
			continue
		}
		if !list.add(block) {
			break
		}
	}
	return list.items, list.len() > 0
}
