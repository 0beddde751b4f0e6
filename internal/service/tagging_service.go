package service

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"step2hub/internal/model"
	"step2hub/internal/util"
	"step2hub/pkg/logger"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultTaggingRules 内置的启发式规则
func DefaultTaggingRules() model.TaggingRules {
	return model.TaggingRules{
		QuestionTypes: []model.PatternRule{
			{Tag: model.QuestionTypeDiagnosis, Patterns: []string{`most likely diagnosis`, `what is the diagnosis`, `etiology`, `cause of`}},
			{Tag: model.QuestionTypeManagement, Patterns: []string{`next best step`, `initial management`, `most appropriate management`, `treatment`, `therapy`}},
			{Tag: model.QuestionTypeWorkup, Patterns: []string{`next test`, `most appropriate test`, `diagnostic step`, `screening`, `evaluation`}},
			{Tag: model.QuestionTypeInterpretation, Patterns: []string{`interpret the (ecg|abg|cxr|labs)`, `most likely finding`, `what does this (lab|image) indicate`}},
			{Tag: model.QuestionTypeMechanism, Patterns: []string{`mechanism`, `pathophysiology`, `pharmacodynamics`, `moa`, `mechanism of action`}},
		},
		QuestionTypeFallbacks: []model.PatternRule{
			{Tag: model.QuestionTypeManagement, Patterns: []string{`next (best )?step|initial management|treatment`}},
			{Tag: model.QuestionTypeDiagnosis, Patterns: []string{`diagnosis|etiology|cause`}},
		},
		DefaultQuestionType: model.QuestionTypeManagement,
		Topics: []model.PatternRule{
			{Tag: "Cardiology", Patterns: []string{"stemi", "nstemi", "heart failure", "chf", "afib", "valve", "jvp", "murmur"}},
			{Tag: "Pulmonology", Patterns: []string{"asthma", "copd", "pneumonia", "pe", "pneumothorax", "pleural"}},
			{Tag: "Nephrology", Patterns: []string{"ckd", "aki", "hyperkalemia", "hyponatremia", "bicarb", "metabolic acidosis", "diuretic"}},
			{Tag: "Endocrine", Patterns: []string{"thyroid", "graves", "hashimoto", "dka", "hhs", "adrenal", "cortisol"}},
			{Tag: "Gastroenterology", Patterns: []string{"cirrhosis", "ulcer", "gi bleed", "ibs", "ibd", "pancreatitis", "bilirubin"}},
			{Tag: "Infectious Dz", Patterns: []string{"sepsis", "meningitis", "endocarditis", "mrsa", "pseudomonas", "hiv", "cdiff"}},
			{Tag: "Heme/Onc", Patterns: []string{"anemia", "leukemia", "lymphoma", "multiple myeloma", "platelet", "transfusion"}},
			{Tag: "OBGYN", Patterns: []string{"pregnan", "preeclampsia", "postpartum", "ectopic", "sti", "pid"}},
			{Tag: "Pediatrics", Patterns: []string{"child", "infant", "vaccin", "bronchiolitis", "rsv", "otitis"}},
			{Tag: "Psych", Patterns: []string{"depress", "mania", "bipolar", "schizo", "anxiety", "ocd", "ptsd"}},
			{Tag: "Surgery/Acute", Patterns: []string{"trauma", "appendicitis", "cholecystitis", "bowel obstruction", "peritonitis"}},
		},
		DefaultTopic: "General IM",
		ErrorTypes: []string{
			"Content gap", "Interpretation", "NBME language trap",
			"Priority/sequence", "Risk/benefit", "Premature closure", "Math/units",
		},
		ErrorRules: []model.ErrorRule{
			{
				Tags:         []string{"Content gap", "Priority/sequence"},
				Pattern:      `first[- ]line|initial (therapy|management)|standard of care`,
				Fields:       []model.ErrorField{model.FieldExplanation},
				RequireWrong: true,
			},
			{
				Tags:    []string{"Interpretation"},
				Pattern: `ecg|ekg|cxr|ct|mri|abg|pft|spirom`,
				Fields:  []model.ErrorField{model.FieldStem, model.FieldExplanation},
			},
			{
				Tags:    []string{"NBME language trap"},
				Pattern: `always|never|except|most|least`,
				Fields:  []model.ErrorField{model.FieldStem},
			},
			{
				Tags:    []string{"Math/units"},
				Pattern: `anion gap|osm(olarity|olality)|dose|units|rate|fractional excretion|clearance`,
				Fields:  []model.ErrorField{model.FieldExplanation},
			},
		},
		DefaultErrorType: "Content gap",
	}
}

// LoadTaggingRules 从 YAML 文件读取规则并校验
func LoadTaggingRules(path string) (model.TaggingRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.TaggingRules{}, fmt.Errorf("read tagging rules: %w", err)
	}
	var rules model.TaggingRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return model.TaggingRules{}, fmt.Errorf("%w: %v", util.ErrInvalidRules, err)
	}
	if _, err := compileRules(rules); err != nil {
		return model.TaggingRules{}, err
	}
	return rules, nil
}

type compiledRule struct {
	tag      string
	patterns []*regexp.Regexp
}

func (r compiledRule) matches(text string) bool {
	for _, re := range r.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

type compiledErrorRule struct {
	tags         []string
	re           *regexp.Regexp
	fields       []model.ErrorField
	requireWrong bool
}

type ruleSet struct {
	rules     model.TaggingRules
	qtypes    []compiledRule
	fallbacks []compiledRule
	topics    []compiledRule
	errors    []compiledErrorRule
}

func compilePatternRules(kind string, rules []model.PatternRule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		if strings.TrimSpace(rule.Tag) == "" {
			return nil, fmt.Errorf("%w: %s rule without tag", util.ErrInvalidRules, kind)
		}
		cr := compiledRule{tag: rule.Tag}
		for _, p := range rule.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("%w: %s %q pattern %q: %v", util.ErrInvalidRules, kind, rule.Tag, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		out = append(out, cr)
	}
	return out, nil
}

func compileRules(rules model.TaggingRules) (*ruleSet, error) {
	if rules.DefaultQuestionType == "" || rules.DefaultTopic == "" || rules.DefaultErrorType == "" {
		return nil, fmt.Errorf("%w: default question type, topic and error type are required", util.ErrInvalidRules)
	}

	rs := &ruleSet{rules: rules}
	var err error
	if rs.qtypes, err = compilePatternRules("question type", rules.QuestionTypes); err != nil {
		return nil, err
	}
	if rs.fallbacks, err = compilePatternRules("question type fallback", rules.QuestionTypeFallbacks); err != nil {
		return nil, err
	}
	if rs.topics, err = compilePatternRules("topic", rules.Topics); err != nil {
		return nil, err
	}

	for i, rule := range rules.ErrorRules {
		if len(rule.Tags) == 0 || len(rule.Fields) == 0 {
			return nil, fmt.Errorf("%w: error rule %d needs tags and fields", util.ErrInvalidRules, i)
		}
		for _, f := range rule.Fields {
			if f != model.FieldStem && f != model.FieldExplanation {
				return nil, fmt.Errorf("%w: error rule %d has unknown field %q", util.ErrInvalidRules, i, f)
			}
		}
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: error rule %d pattern %q: %v", util.ErrInvalidRules, i, rule.Pattern, err)
		}
		rs.errors = append(rs.errors, compiledErrorRule{
			tags:         rule.Tags,
			re:           re,
			fields:       rule.Fields,
			requireWrong: rule.RequireWrong,
		})
	}
	return rs, nil
}

// TaggingService 基于关键词的启发式分类，结果只是建议，保存前可修改。
// 规则集可在运行时整体替换
type TaggingService struct {
	rules atomic.Pointer[ruleSet]
}

func NewTaggingService(rules model.TaggingRules) (*TaggingService, error) {
	s := &TaggingService{}
	if err := s.Reload(rules); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload 校验通过后替换规则集，失败时保留旧规则
func (s *TaggingService) Reload(rules model.TaggingRules) error {
	rs, err := compileRules(rules)
	if err != nil {
		return err
	}
	s.rules.Store(rs)
	return nil
}

// ReloadFile 配置监听回调使用
func (s *TaggingService) ReloadFile(path string) {
	rules, err := LoadTaggingRules(path)
	if err == nil {
		err = s.Reload(rules)
	}
	if err != nil {
		logger.Log.Error("Failed to reload tagging rules, keeping previous rules", zap.String("file", path), zap.Error(err))
		return
	}
	logger.Log.Info("Tagging rules reloaded", zap.String("file", path), zap.Int("topics", len(rules.Topics)))
}

func (s *TaggingService) Rules() model.TaggingRules {
	return s.rules.Load().rules
}

// GuessQuestionType 按规则顺序取第一个命中的题型
func (s *TaggingService) GuessQuestionType(text string) string {
	rs := s.rules.Load()
	for _, rule := range rs.qtypes {
		if rule.matches(text) {
			return rule.tag
		}
	}
	for _, rule := range rs.fallbacks {
		if rule.matches(text) {
			return rule.tag
		}
	}
	return rs.rules.DefaultQuestionType
}

// GuessTopics 返回所有命中的主题，均未命中时返回默认主题
func (s *TaggingService) GuessTopics(text string) []string {
	rs := s.rules.Load()
	var hits []string
	for _, rule := range rs.topics {
		if rule.matches(text) {
			hits = append(hits, rule.tag)
		}
	}
	if len(hits) == 0 {
		return []string{rs.rules.DefaultTopic}
	}
	return hits
}

// SuggestErrorTypes 结果去重并排序
func (s *TaggingService) SuggestErrorTypes(yourAnswer, correctAnswer, stem, explanation string) []string {
	rs := s.rules.Load()
	ya := strings.ToLower(strings.TrimSpace(yourAnswer))
	ca := strings.ToLower(strings.TrimSpace(correctAnswer))
	wrong := ya != "" && ca != "" && ya != ca

	suggested := make(map[string]bool)
	for _, rule := range rs.errors {
		if rule.requireWrong && !wrong {
			continue
		}
		parts := make([]string, 0, len(rule.fields))
		for _, f := range rule.fields {
			if f == model.FieldStem {
				parts = append(parts, stem)
			} else {
				parts = append(parts, explanation)
			}
		}
		if rule.re.MatchString(strings.Join(parts, " ")) {
			for _, tag := range rule.tags {
				suggested[tag] = true
			}
		}
	}
	if len(suggested) == 0 {
		suggested[rs.rules.DefaultErrorType] = true
	}

	out := make([]string, 0, len(suggested))
	for tag := range suggested {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Suggest 对题干加解析文本给出全部建议
func (s *TaggingService) Suggest(in model.SuggestInput) model.Suggestion {
	text := in.RawQuestion + "\n" + in.ExplanationRaw
	return model.Suggestion{
		QuestionType: s.GuessQuestionType(text),
		Topics:       s.GuessTopics(text),
		ErrorTypes:   s.SuggestErrorTypes(in.YourAnswer, in.CorrectAnswer, in.RawQuestion, in.ExplanationRaw),
	}
}

// QuestionTypeOptions 表单下拉框选项，保持规则顺序
func (s *TaggingService) QuestionTypeOptions() []string {
	rules := s.Rules()
	var tags []string
	for _, r := range rules.QuestionTypes {
		tags = append(tags, r.Tag)
	}
	for _, r := range rules.QuestionTypeFallbacks {
		tags = append(tags, r.Tag)
	}
	tags = append(tags, rules.DefaultQuestionType)
	return uniqueTags(tags)
}

// TopicOptions 所有主题加默认主题，按字母排序
func (s *TaggingService) TopicOptions() []string {
	rules := s.Rules()
	tags := []string{rules.DefaultTopic}
	for _, r := range rules.Topics {
		tags = append(tags, r.Tag)
	}
	tags = uniqueTags(tags)
	sort.Strings(tags)
	return tags
}

// ErrorTypeOptions 配置的错误类型，规则中出现但未列出的追加在后
func (s *TaggingService) ErrorTypeOptions() []string {
	rules := s.Rules()
	tags := append([]string{}, rules.ErrorTypes...)
	for _, r := range rules.ErrorRules {
		tags = append(tags, r.Tags...)
	}
	tags = append(tags, rules.DefaultErrorType)
	return uniqueTags(tags)
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// cleanTags 清理用户输入的标签，兼容中文逗号与顿号
func cleanTags(tags []string) []string {
	var parts []string
	for _, raw := range tags {
		raw = strings.ReplaceAll(raw, "、", ",")
		raw = strings.ReplaceAll(raw, "，", ",")
		parts = append(parts, model.SplitTags(raw)...)
	}
	return uniqueTags(parts)
}
