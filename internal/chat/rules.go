package chat

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"cv-assistant-go/internal/types"
)

// Category 问题分类
type Category string

const (
	CategoryLastPosition Category = "last_position"
	CategorySkills       Category = "skills"
	CategoryContact      Category = "contact"
	CategoryEducation    Category = "education"
	CategoryExperience   Category = "experience"
	CategoryName         Category = "name"
	CategoryFallback     Category = "fallback"
)

// 置信度
const (
	confidenceHit       = 0.9
	confidenceHitLow    = 0.8
	confidenceMissing   = 0.3
	confidenceSnippet   = 0.6
	confidenceUnknown   = 0.2
	confidenceInvalid   = 0.1
	confidenceExternal  = 0.85
	snippetWindow       = 100
	maxSnippets         = 2
	maxListedExperience = 3
)

const (
	genericNoAnswer   = "I couldn't find specific information to answer your question. Could you try rephrasing or asking about skills, experience, education, or contact information?"
	invalidInputReply = "Please provide a parsed resume and a non-empty question."
)

type rule struct {
	category Category
	keywords []string
	answer   func(p *types.ParsedResume) (string, bool)
	hit      float64
	missing  string
}

// rules 按优先级排列，先命中者生效
var rules = []rule{
	{
		category: CategoryLastPosition,
		keywords: []string{"last position", "recent job", "current job", "latest role"},
		hit:      confidenceHit,
		missing:  "I couldn't find information about your recent positions in your resume.",
		answer: func(p *types.ParsedResume) (string, bool) {
			if len(p.Jobs) == 0 {
				return "", false
			}
			return "Your most recent position: " + p.Jobs[0], true
		},
	},
	{
		category: CategorySkills,
		keywords: []string{"skill", "technology", "programming"},
		hit:      confidenceHit,
		missing:  "I couldn't find a skills section in your resume.",
		answer: func(p *types.ParsedResume) (string, bool) {
			if len(p.Skills) == 0 {
				return "", false
			}
			return "Your skills include: " + strings.Join(p.Skills, ", "), true
		},
	},
	{
		category: CategoryContact,
		keywords: []string{"email", "contact", "phone"},
		hit:      confidenceHit,
		missing:  "I couldn't find contact information in your resume.",
		answer: func(p *types.ParsedResume) (string, bool) {
			var parts []string
			if p.Email != nil {
				parts = append(parts, "Email: "+*p.Email)
			}
			if p.Phone != nil {
				parts = append(parts, "Phone: "+*p.Phone)
			}
			if len(parts) == 0 {
				return "", false
			}
			return "Your contact information: " + strings.Join(parts, ", "), true
		},
	},
	{
		category: CategoryEducation,
		keywords: []string{"education", "degree", "university"},
		hit:      confidenceHitLow,
		missing:  "I couldn't find education information in your resume.",
		answer: func(p *types.ParsedResume) (string, bool) {
			if len(p.Education) == 0 {
				return "", false
			}
			return "Your education: " + strings.Join(p.Education, ", "), true
		},
	},
	{
		category: CategoryExperience,
		keywords: []string{"experience", "work", "job"},
		hit:      confidenceHitLow,
		missing:  "I couldn't find work experience in your resume.",
		answer: func(p *types.ParsedResume) (string, bool) {
			if len(p.Jobs) == 0 {
				return "", false
			}
			listed := p.Jobs[:min(len(p.Jobs), maxListedExperience)]
			return fmt.Sprintf("You have %d work experiences listed. Here are your positions:\n\n%s",
				len(p.Jobs), strings.Join(listed, "\n\n")), true
		},
	},
	{
		category: CategoryName,
		keywords: []string{"name", "who are"},
		hit:      confidenceHit,
		missing:  "I couldn't identify your name from the resume.",
		answer: func(p *types.ParsedResume) (string, bool) {
			if p.Name == nil {
				return "", false
			}
			return "Your name is " + *p.Name, true
		},
	},
}

// Classify 按关键字优先级给问题分类
func Classify(question string) Category {
	if r := matchRule(question); r != nil {
		return r.category
	}
	return CategoryFallback
}

func matchRule(question string) *rule {
	q := strings.ToLower(question)
	for i := range rules {
		for _, kw := range rules[i].keywords {
			if strings.Contains(q, kw) {
				return &rules[i]
			}
		}
	}
	return nil
}

// AnswerByRules 纯规则回答，不访问任何外部服务
func AnswerByRules(parsed *types.ParsedResume, question string) types.ChatResponse {
	if r := matchRule(question); r != nil {
		if text, ok := r.answer(parsed); ok {
			return ruleResponse(text, r.hit)
		}
		return ruleResponse(r.missing, confidenceMissing)
	}

	snippets := findSnippets(parsed.Raw, question)
	if len(snippets) > 0 {
		return ruleResponse("I found this relevant information: "+strings.Join(snippets, " ... "), confidenceSnippet)
	}
	return ruleResponse(genericNoAnswer, confidenceUnknown)
}

// findSnippets 对问题中长度大于 3 的词（去掉首尾标点），在原文中取前后各 100 字符的窗口，最多返回两段
func findSnippets(raw, question string) []string {
	if raw == "" {
		return nil
	}
	var snippets []string
	for _, word := range strings.Split(question, " ") {
		word = strings.TrimFunc(word, unicode.IsPunct)
		if len([]rune(word)) <= 3 {
			continue
		}
		re, err := regexp.Compile(fmt.Sprintf(`(?i).{0,%d}%s.{0,%d}`, snippetWindow, regexp.QuoteMeta(word), snippetWindow))
		if err != nil {
			continue
		}
		for _, m := range re.FindAllString(raw, maxSnippets) {
			snippets = append(snippets, m)
			if len(snippets) == maxSnippets {
				return snippets
			}
		}
	}
	return snippets
}

func ruleResponse(text string, confidence float64) types.ChatResponse {
	return types.ChatResponse{Text: text, Confidence: confidence, Source: types.SourceRuleBased}
}

func invalidInputResponse() types.ChatResponse {
	return types.ChatResponse{Text: invalidInputReply, Confidence: confidenceInvalid, Source: types.SourceError}
}
