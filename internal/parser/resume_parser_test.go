package parser

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResumeText_Sample(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewResumeParser(WithClock(func() time.Time { return fixed }))

	res := p.ParseResumeText(sampleResume)

	require.NotNil(t, res.Name)
	assert.Equal(t, "Jane Doe", *res.Name)
	require.NotNil(t, res.Email)
	assert.Equal(t, "jane.doe@example.com", *res.Email)
	require.NotNil(t, res.Phone)
	assert.Equal(t, "+44 20 7946 0958", *res.Phone)
	require.NotNil(t, res.Summary)
	assert.Equal(t, "Backend engineer focused on Go services.", *res.Summary)
	assert.Equal(t, []string{"Go", "Redis", "PostgreSQL"}, res.Skills)
	assert.Equal(t, []string{"CV Assistant: Resume parsing and chat answers. (Tech: Go, Redis)"}, res.Jobs)
	assert.Equal(t, []string{"BS Computer Science, MIT"}, res.Education)
	assert.Empty(t, res.Certifications)
	assert.Equal(t, sampleResume, res.Raw)
	assert.Equal(t, fixed, res.ParsedAt)
}

func TestParseResumeText_InlineSkillsKept(t *testing.T) {
	res := ParseResumeText("Skills: Python, Go\nTools: Docker\n")
	assert.Equal(t, []string{"Python", "Go", "Docker"}, res.Skills)
}

func TestParseResumeText_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   \n\t  \r\n"} {
		res := ParseResumeText(text)

		assert.Nil(t, res.Name)
		assert.Nil(t, res.Email)
		assert.Nil(t, res.Phone)
		assert.Nil(t, res.Summary)
		assert.NotNil(t, res.Skills)
		assert.Empty(t, res.Skills)
		assert.NotNil(t, res.Jobs)
		assert.Empty(t, res.Jobs)
		assert.NotNil(t, res.Education)
		assert.NotNil(t, res.Certifications)
		assert.False(t, res.ParsedAt.IsZero())
	}
}

func TestParseResumeText_RawTruncatedAfterExtraction(t *testing.T) {
	text := strings.Repeat("é", 5000) + "\nContact: late@example.com"

	res := ParseResumeText(text)

	require.NotNil(t, res.Email, "抽取应基于完整文本")
	assert.Equal(t, "late@example.com", *res.Email)
	assert.Equal(t, 4000, utf8.RuneCountInString(res.Raw))
	assert.True(t, utf8.ValidString(res.Raw))
}

func TestParseResumeText_Idempotent(t *testing.T) {
	first := ParseResumeText(sampleResume)
	second := ParseResumeText(sampleResume)

	first.ParsedAt = time.Time{}
	second.ParsedAt = time.Time{}
	assert.Equal(t, first, second)
}

func TestParseResumeText_CustomLimits(t *testing.T) {
	p := NewResumeParser(WithExtractorConfig(ExtractorConfig{MaxSkills: 2, RawLimit: 10}))

	res := p.ParseResumeText(sampleResume)

	assert.Equal(t, []string{"Go", "Redis"}, res.Skills)
	assert.Equal(t, 10, utf8.RuneCountInString(res.Raw))
	assert.Equal(t, 10, p.Config().MaxJobs, "未设置的阈值使用默认值")
}

func TestParseStructuredResume(t *testing.T) {
	res := ParseStructuredResume(sampleResume)

	require.NotNil(t, res.Name)
	assert.Equal(t, "Jane Doe", *res.Name)
	assert.Len(t, res.Sections, 4)
	assert.True(t, res.Metadata.HasStructure)
	assert.Equal(t, len(strings.Fields(sampleResume)), res.Metadata.WordCount)
	assert.Equal(t, strings.Count(sampleResume, "\n")+1, res.Metadata.LineCount)
}

func TestParseStructuredResume_LittleStructure(t *testing.T) {
	res := ParseStructuredResume("Skills\nGo\n\nEducation\nMIT")

	assert.Len(t, res.Sections, 2)
	assert.False(t, res.Metadata.HasStructure, "不超过两个章节时视为无结构")
	assert.Equal(t, 5, res.Metadata.LineCount)
	assert.Equal(t, 4, res.Metadata.WordCount)

	empty := ParseStructuredResume("")
	assert.NotNil(t, empty.Sections)
	assert.Equal(t, 0, empty.Metadata.LineCount)
	assert.Equal(t, 0, empty.Metadata.WordCount)
}
