package model

import "strings"

// Columns logs 表的列顺序，CSV 表头与建表语句都以此为准
var Columns = []string{
	"id",
	"created_at",
	"source",
	"exam",
	"qnum",
	"raw_question",
	"choices",
	"your_answer",
	"correct_answer",
	"confidence",
	"explanation_raw",
	"topics",
	"question_type",
	"error_types",
	"missed_clues",
	"notes",
}

// TagSeparator topics / error_types 多值列的分隔符
const TagSeparator = ", "

// LogEntry 一道记录下来的题目
type LogEntry struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id" db:"id"`
	CreatedAt      Timestamp `gorm:"column:created_at" json:"createdAt" db:"created_at"`
	Source         string    `gorm:"column:source" json:"source" db:"source"`
	Exam           string    `gorm:"column:exam" json:"exam" db:"exam"`
	QNum           string    `gorm:"column:qnum" json:"qnum" db:"qnum"`
	RawQuestion    string    `gorm:"column:raw_question" json:"rawQuestion" db:"raw_question"`
	Choices        string    `gorm:"column:choices" json:"choices" db:"choices"`
	YourAnswer     string    `gorm:"column:your_answer" json:"yourAnswer" db:"your_answer"`
	CorrectAnswer  string    `gorm:"column:correct_answer" json:"correctAnswer" db:"correct_answer"`
	Confidence     int       `gorm:"column:confidence" json:"confidence" db:"confidence"`
	ExplanationRaw string    `gorm:"column:explanation_raw" json:"explanationRaw" db:"explanation_raw"`
	Topics         string    `gorm:"column:topics" json:"topics" db:"topics"`
	QuestionType   string    `gorm:"column:question_type" json:"questionType" db:"question_type"`
	ErrorTypes     string    `gorm:"column:error_types" json:"errorTypes" db:"error_types"`
	MissedClues    string    `gorm:"column:missed_clues" json:"missedClues" db:"missed_clues"`
	Notes          string    `gorm:"column:notes" json:"notes" db:"notes"`
}

func (LogEntry) TableName() string {
	return "logs"
}

// IsCorrect 去空格、忽略大小写比较两个答案
func (e *LogEntry) IsCorrect() bool {
	return AnswersMatch(e.YourAnswer, e.CorrectAnswer)
}

func (e *LogEntry) TopicList() []string {
	return SplitTags(e.Topics)
}

func (e *LogEntry) ErrorTypeList() []string {
	return SplitTags(e.ErrorTypes)
}

func AnswersMatch(yours, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(yours), strings.TrimSpace(correct))
}

// SplitTags 拆分逗号连接的标签，丢弃空项
func SplitTags(joined string) []string {
	var tags []string
	for _, t := range strings.Split(joined, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func JoinTags(tags []string) string {
	return strings.Join(tags, TagSeparator)
}

// HasTag 判断逗号连接的列中是否存在完全相同的标签
func HasTag(joined, tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range SplitTags(joined) {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
