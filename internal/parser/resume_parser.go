package parser

import (
	"strings"
	"time"

	"cv-assistant-go/internal/types"
)

// ExtractorConfig 抽取阈值，均为经验值，可通过配置调整
type ExtractorConfig struct {
	RawLimit         int // Raw 字段保留的最大字符数
	MaxSkills        int
	MaxJobs          int
	SkillsMinCount   int // 技能章节结果少于该值时扫描全文分类标签
	DescriptionLimit int // 项目描述最大字符数
}

// DefaultExtractorConfig 默认阈值
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		RawLimit:         4000,
		MaxSkills:        30,
		MaxJobs:          10,
		SkillsMinCount:   8,
		DescriptionLimit: 250,
	}
}

// withDefaults 非正数的字段使用默认值
func (c ExtractorConfig) withDefaults() ExtractorConfig {
	d := DefaultExtractorConfig()
	if c.RawLimit <= 0 {
		c.RawLimit = d.RawLimit
	}
	if c.MaxSkills <= 0 {
		c.MaxSkills = d.MaxSkills
	}
	if c.MaxJobs <= 0 {
		c.MaxJobs = d.MaxJobs
	}
	if c.SkillsMinCount <= 0 {
		c.SkillsMinCount = d.SkillsMinCount
	}
	if c.DescriptionLimit <= 0 {
		c.DescriptionLimit = d.DescriptionLimit
	}
	return c
}

// Option ResumeParser 的配置选项
type Option func(*ResumeParser)

// WithExtractorConfig 设置抽取阈值
func WithExtractorConfig(cfg ExtractorConfig) Option {
	return func(p *ResumeParser) {
		p.ext.cfg = cfg.withDefaults()
	}
}

// WithClock 设置时间来源，测试时用于固定 ParsedAt
func WithClock(now func() time.Time) Option {
	return func(p *ResumeParser) {
		if now != nil {
			p.now = now
		}
	}
}

type extractor struct {
	cfg ExtractorConfig
}

// ResumeParser 简历字段抽取引擎
// 无状态，可被多个 goroutine 并发使用
type ResumeParser struct {
	ext extractor
	now func() time.Time
}

// NewResumeParser 创建抽取引擎
func NewResumeParser(opts ...Option) *ResumeParser {
	p := &ResumeParser{
		ext: extractor{cfg: DefaultExtractorConfig()},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config 返回当前生效的阈值
func (p *ResumeParser) Config() ExtractorConfig {
	return p.ext.cfg
}

// ParseResumeText 从原始文本抽取各字段，任何输入都不会返回错误
func (p *ResumeParser) ParseResumeText(text string) *types.ParsedResume {
	return p.parse(NewDocument(text), text)
}

func (p *ResumeParser) parse(doc *Document, text string) *types.ParsedResume {
	e := &p.ext
	res := &types.ParsedResume{
		Skills:         e.extractSkills(doc),
		Jobs:           e.extractJobs(doc),
		Education:      e.extractEducation(doc),
		Certifications: e.extractCertifications(doc),
		Raw:            truncateRunes(text, e.cfg.RawLimit),
		ParsedAt:       p.now(),
	}
	if v, ok := extractName(doc); ok {
		res.Name = types.StrPtr(v)
	}
	if v, ok := extractEmail(doc); ok {
		res.Email = types.StrPtr(v)
	}
	if v, ok := extractPhone(doc); ok {
		res.Phone = types.StrPtr(v)
	}
	if v, ok := e.extractSummary(doc); ok {
		res.Summary = types.StrPtr(v)
	}
	return res
}

// ParseStructuredResume 在字段抽取结果上附加章节切分和统计信息
func (p *ResumeParser) ParseStructuredResume(text string) *types.StructuredResume {
	doc := NewDocument(text)
	parsed := p.parse(doc, text)

	sections := make([]types.Section, len(doc.Sections))
	copy(sections, doc.Sections)

	return &types.StructuredResume{
		ParsedResume: *parsed,
		Sections:     sections,
		Metadata: types.ResumeMetadata{
			WordCount:    len(strings.Fields(text)),
			LineCount:    countLines(doc.Text),
			HasStructure: len(sections) > 2,
		},
	}
}

// countLines 按换行计数，空文本为 0
func countLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

var defaultParser = NewResumeParser()

// ParseResumeText 使用默认阈值解析
func ParseResumeText(text string) *types.ParsedResume {
	return defaultParser.ParseResumeText(text)
}

// ParseStructuredResume 使用默认阈值解析并切分章节
func ParseStructuredResume(text string) *types.StructuredResume {
	return defaultParser.ParseStructuredResume(text)
}
