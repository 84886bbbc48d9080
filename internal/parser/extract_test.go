package parser

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *extractor {
	return &extractor{cfg: DefaultExtractorConfig()}
}

func TestExtractContactFields(t *testing.T) {
	doc := NewDocument("Jane Doe\nSenior Software Engineer\nEmail: jane.doe@example.com | Phone: +1 (555) 123-4567\n")

	email, ok := extractEmail(doc)
	require.True(t, ok)
	assert.Equal(t, "jane.doe@example.com", email)

	phone, ok := extractPhone(doc)
	require.True(t, ok)
	assert.Equal(t, "+1 (555) 123-4567", phone)

	name, ok := extractName(doc)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", name, "应取联系方式之前的首字母大写姓名")
}

func TestExtractEmail_FirstWins(t *testing.T) {
	doc := NewDocument("work: a.b@corp.io\npersonal: me@home.org")
	email, ok := extractEmail(doc)
	require.True(t, ok)
	assert.Equal(t, "a.b@corp.io", email)

	_, ok = extractEmail(NewDocument("no address here"))
	assert.False(t, ok)
}

func TestExtractName_Strategies(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"全大写姓名走第二阶段", "JOHN SMITH\n--\njohn@smith.io", "JOHN SMITH", true},
		{"剥离装饰符号", "Resume\n• Maria Garcia •\nBerlin", "Maria Garcia", true},
		{"包含 cv 的行一律排除", "Ana Cvetkovic\nsoftware engineer", "", false},
		{"CV 标题行被跳过", "Curriculum Vitae CV\nMaria Garcia\nBerlin", "Maria Garcia", true},
		{"排除 resume 标题和小写行", "My Resume Draft\nsoftware engineer", "", false},
		{"空文本", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractName(NewDocument(tt.text))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractSkills_CategoryItems(t *testing.T) {
	doc := NewDocument("Technical Skills\n• Programming Languages: Python, Go, Rust\n• Databases: PostgreSQL, Redis\n")

	skills := newTestExtractor().extractSkills(doc)

	assert.Equal(t, []string{"Python", "Go", "Rust", "PostgreSQL", "Redis"}, skills)
}

func TestExtractSkills_Dedup(t *testing.T) {
	doc := NewDocument("Skills\n- Languages: Go, Python, Go\n- Tools: Docker, Python\n")

	skills := newTestExtractor().extractSkills(doc)

	assert.Equal(t, []string{"Go", "Python", "Docker"}, skills, "去重且保持首次出现顺序")
}

func TestExtractSkills_CategoryScanOutsideSection(t *testing.T) {
	doc := NewDocument("Jane Doe\n\nFrameworks: Django, React\nCloud & DevOps: AWS, Terraform\n")

	skills := newTestExtractor().extractSkills(doc)

	assert.Equal(t, []string{"Django", "React", "AWS", "Terraform"}, skills)
}

func TestExtractSkills_Cap(t *testing.T) {
	tokens := make([]string, 40)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("skill%02d", i+1)
	}
	doc := NewDocument("Skills\n• Tools: " + strings.Join(tokens, ", ") + "\n")

	skills := newTestExtractor().extractSkills(doc)

	require.Len(t, skills, 30)
	assert.Equal(t, "skill01", skills[0])
	assert.Equal(t, "skill30", skills[29])
}

func TestExtractSkills_GenericFallback(t *testing.T) {
	doc := NewDocument("Skills: Python, Java, C\n\nOther text follows here")

	skills := newTestExtractor().extractSkills(doc)

	assert.Equal(t, []string{"Python", "Java", "C"}, skills, "兜底策略允许单字符技能")
}

func TestExtractSkills_InlineListWithCategoryLine(t *testing.T) {
	skills := newTestExtractor().extractSkills(NewDocument("Skills: Python, Go\nTools: Docker\n"))
	assert.Equal(t, []string{"Python", "Go", "Docker"}, skills, "标题行内的列表不能因为分类行而丢失")

	skills = newTestExtractor().extractSkills(NewDocument("Technical Skills: Languages: Go, Rust\n- Databases: Redis\n"))
	assert.Equal(t, []string{"Go", "Rust", "Redis"}, skills)
}

func TestExtractSkills_None(t *testing.T) {
	skills := newTestExtractor().extractSkills(NewDocument("Nothing relevant in this text."))
	assert.NotNil(t, skills)
	assert.Empty(t, skills)
}

func TestExtractJobs_YearBlocks(t *testing.T) {
	withYear := "Software Engineer at Acme Corp, 2020 - building payment services in Go."
	text := "Jane Doe\n\n" + withYear + "\n\nHobbies include hiking and photography on the weekends."

	jobs := newTestExtractor().extractJobs(NewDocument(text))

	assert.Equal(t, []string{withYear}, jobs)
}

func TestExtractJobs_ShortYearBlockIgnored(t *testing.T) {
	jobs := newTestExtractor().extractJobs(NewDocument("Acme, 2020\n\nAnother block"))
	assert.Empty(t, jobs)
	assert.NotNil(t, jobs)
}

func TestExtractJobs_Cap(t *testing.T) {
	var blocks []string
	for i := 1; i <= 12; i++ {
		blocks = append(blocks, fmt.Sprintf("Role %d at Company %d, 2015 - doing meaningful engineering work on systems.", i, i))
	}

	jobs := newTestExtractor().extractJobs(NewDocument(strings.Join(blocks, "\n\n")))

	require.Len(t, jobs, 10)
	assert.Equal(t, blocks[0], jobs[0])
	assert.Equal(t, blocks[9], jobs[9])
}

func TestExtractJobs_ProjectSection(t *testing.T) {
	text := `Projects
CV Assistant
Built a resume parsing service with chat answers.
Tech Stack: Go, Redis

Chat Bot
Answered questions about candidates.
Technologies: Python, FastAPI
`
	jobs := newTestExtractor().extractJobs(NewDocument(text))

	assert.Equal(t, []string{
		"CV Assistant: Built a resume parsing service with chat answers. (Tech: Go, Redis)",
		"Chat Bot: Answered questions about candidates. (Tech: Python, FastAPI)",
	}, jobs)
}

func TestExtractJobs_DescriptionTruncated(t *testing.T) {
	text := "Projects\nBig Project\n" + strings.Repeat("word ", 80) + "\nTech Stack: Go\n"

	jobs := newTestExtractor().extractJobs(NewDocument(text))

	require.Len(t, jobs, 1)
	desc := strings.TrimSuffix(strings.TrimPrefix(jobs[0], "Big Project: "), " (Tech: Go)")
	assert.True(t, strings.HasSuffix(desc, "..."), "超长描述应以省略号结尾")
	assert.LessOrEqual(t, utf8.RuneCountInString(desc), 250)
}

func TestExtractJobs_SectionWithoutMarkersFallsBack(t *testing.T) {
	block := "Backend Engineer, Initech 2018 - 2021, maintained billing services and APIs."
	text := "Experience\n" + block + "\n"

	jobs := newTestExtractor().extractJobs(NewDocument(text))

	require.Len(t, jobs, 1)
	assert.Contains(t, jobs[0], "Initech")
}

func TestExtractEducation(t *testing.T) {
	e := newTestExtractor()

	doc := NewDocument("Education\nBachelor of Science in Computer Science\nStanford University, 2016\n")
	assert.Equal(t, []string{"Bachelor of Science in Computer Science, Stanford University, 2016"}, e.extractEducation(doc))

	doc = NewDocument("Education\nSelf-taught through online courses\n\nSkills\nGo")
	assert.Equal(t, []string{"Self-taught through online courses"}, e.extractEducation(doc), "没有学位条目时返回整个片段")

	doc = NewDocument("Jane Doe\nMaster of Engineering, Delft University of Technology\n")
	assert.Equal(t, []string{"Master of Engineering, Delft University of Technology"}, e.extractEducation(doc), "无标题时按关键字行识别")

	assert.Empty(t, e.extractEducation(NewDocument("nothing here")))
}

func TestExtractCertifications(t *testing.T) {
	doc := NewDocument("Certifications\n- AWS Certified Solutions Architect\n- Certified Kubernetes Administrator\n- AWS Certified Solutions Architect\n\nHobbies")

	certs := newTestExtractor().extractCertifications(doc)

	assert.Equal(t, []string{"AWS Certified Solutions Architect", "Certified Kubernetes Administrator"}, certs)
}

func TestExtractSummary(t *testing.T) {
	doc := NewDocument("Jane Doe\njane@example.com\n\nSummary\nBackend engineer with eight years of experience\nbuilding distributed systems.\n\nExperience\nAcme 2020")

	summary, ok := newTestExtractor().extractSummary(doc)

	require.True(t, ok)
	assert.Equal(t, "Backend engineer with eight years of experience building distributed systems.", summary)

	_, ok = newTestExtractor().extractSummary(NewDocument("no such header"))
	assert.False(t, ok)
}
