package model

// 题型
const (
	QuestionTypeDiagnosis      = "diagnosis"
	QuestionTypeManagement     = "management"
	QuestionTypeWorkup         = "workup"
	QuestionTypeInterpretation = "interpretation"
	QuestionTypeMechanism      = "mechanism"
)

// QuestionTypes 表单下拉框的固定顺序
var QuestionTypes = []string{
	QuestionTypeDiagnosis,
	QuestionTypeManagement,
	QuestionTypeWorkup,
	QuestionTypeInterpretation,
	QuestionTypeMechanism,
}

// PatternRule 命中任一正则即打上 Tag
type PatternRule struct {
	Tag      string   `yaml:"tag" json:"tag"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// ErrorField 错误类型规则检查的文本
type ErrorField string

const (
	FieldStem        ErrorField = "stem"
	FieldExplanation ErrorField = "explanation"
)

// ErrorRule 在 Fields 拼接后的文本里搜索 Pattern，命中即建议 Tags。
// RequireWrong 为 true 时还要求两个答案都不为空且不一致
type ErrorRule struct {
	Tags         []string     `yaml:"tags" json:"tags"`
	Pattern      string       `yaml:"pattern" json:"pattern"`
	Fields       []ErrorField `yaml:"fields" json:"fields"`
	RequireWrong bool         `yaml:"require_wrong" json:"requireWrong"`
}

// TaggingRules 启发式打标签的全部规则，可从 YAML 文件加载
type TaggingRules struct {
	QuestionTypes         []PatternRule `yaml:"question_types" json:"questionTypes"`
	QuestionTypeFallbacks []PatternRule `yaml:"question_type_fallbacks" json:"questionTypeFallbacks"`
	DefaultQuestionType   string        `yaml:"default_question_type" json:"defaultQuestionType"`
	Topics                []PatternRule `yaml:"topics" json:"topics"`
	DefaultTopic          string        `yaml:"default_topic" json:"defaultTopic"`
	ErrorTypes            []string      `yaml:"error_types" json:"errorTypes"`
	ErrorRules            []ErrorRule   `yaml:"error_rules" json:"errorRules"`
	DefaultErrorType      string        `yaml:"default_error_type" json:"defaultErrorType"`
}

// SuggestInput 打标签所需的表单字段
type SuggestInput struct {
	RawQuestion    string `json:"rawQuestion" form:"raw_question"`
	ExplanationRaw string `json:"explanationRaw" form:"explanation_raw"`
	YourAnswer     string `json:"yourAnswer" form:"your_answer"`
	CorrectAnswer  string `json:"correctAnswer" form:"correct_answer"`
}

// Suggestion 自动建议的分类，保存前可由用户修改
type Suggestion struct {
	QuestionType string   `json:"questionType"`
	Topics       []string `json:"topics"`
	ErrorTypes   []string `json:"errorTypes"`
}
