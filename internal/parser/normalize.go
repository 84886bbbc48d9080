package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"cv-assistant-go/internal/types"
)

var (
	lineBreakRegex  = regexp.MustCompile(`\r\n|\r|\n`)
	blankLineRegex  = regexp.MustCompile(`\n\s*\n`)
	leadingBulletRe = regexp.MustCompile(`^[\s•*·▪◦‣●○■□➢►>\-–—]+`)
)

// Document 一次解析过程中共享的只读视图
// 各抽取器只读取 Document，互不依赖
type Document struct {
	Text     string          // 换行统一为 \n 的全文
	Lines    []string        // 去空白的非空行
	Blocks   []string        // 以空行分隔的段落
	Sections []types.Section // 章节切分结果，供经历抽取优先使用
}

// section 按标题查找章节，忽略大小写
func (d *Document) section(title string) (types.Section, bool) {
	for _, s := range d.Sections {
		if strings.EqualFold(s.Title, title) {
			return s, true
		}
	}
	return types.Section{}, false
}

// NewDocument 规范化文本并预先完成行、段落、章节切分
func NewDocument(text string) *Document {
	normalized := lineBreakRegex.ReplaceAllString(text, "\n")
	doc := &Document{
		Text:   normalized,
		Lines:  SplitLines(normalized),
		Blocks: SplitBlocks(normalized),
	}
	doc.Sections = segment(normalized)
	return doc
}

// SplitLines 按任意换行符切分，去除首尾空白并丢弃空行
func SplitLines(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	parts := lineBreakRegex.Split(text, -1)
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

// SplitBlocks 按一个或多个空行切分段落
func SplitBlocks(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	normalized := lineBreakRegex.ReplaceAllString(text, "\n")
	parts := blankLineRegex.Split(normalized, -1)
	blocks := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			blocks = append(blocks, p)
		}
	}
	return blocks
}

// stripBullet 去掉行首的项目符号
func stripBullet(line string) string {
	return strings.TrimSpace(leadingBulletRe.ReplaceAllString(line, ""))
}

// truncateRunes 按字符截断，不会切断多字节字符
func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// uniqueList 保序去重并限制长度，limit<=0 表示不限制
type uniqueList struct {
	items []string
	seen  map[string]struct{}
	limit int
}

func newUniqueList(limit int) *uniqueList {
	return &uniqueList{items: []string{}, seen: map[string]struct{}{}, limit: limit}
}

// add 返回 false 表示已达上限
func (u *uniqueList) add(item string) bool {
	if u.full() {
		return false
	}
	item = strings.TrimSpace(item)
	if item == "" {
		return true
	}
	if _, ok := u.seen[item]; ok {
		return true
	}
	u.seen[item] = struct{}{}
	u.items = append(u.items, item)
	return !u.full()
}

func (u *uniqueList) full() bool {
	return u.limit > 0 && len(u.items) >= u.limit
}

func (u *uniqueList) len() int { return len(u.items) }

// isAllCapsTitle 判断是否为全大写的标题行，如 "WORK EXPERIENCE"
func isAllCapsTitle(line string) bool {
	if utf8.RuneCountInString(line) > 40 || len(strings.Fields(line)) > 5 {
		return false
	}
	letters := 0
	for _, r := range line {
		switch {
		case unicode.IsLower(r), unicode.IsDigit(r):
			return false
		case unicode.IsLetter(r):
			letters++
		case r == ':' || r == '&' || r == '/' || unicode.IsSpace(r):
		default:
			return false
		}
	}
	return letters >= 3
}
