package model

import (
	"strings"
	"time"
)

// LogFilter 列表与导出共用的筛选条件，零值表示不过滤
type LogFilter struct {
	Source       string     `form:"source" json:"source"`
	Exam         string     `form:"exam" json:"exam"`
	QuestionType string     `form:"question_type" json:"questionType"`
	Topic        string     `form:"topic" json:"topic"`
	ErrorType    string     `form:"error_type" json:"errorType"`
	From         *time.Time `form:"from" time_format:"2006-01-02" json:"from,omitempty"`
	To           *time.Time `form:"to" time_format:"2006-01-02" json:"to,omitempty"`
	Limit        int        `form:"limit" json:"limit"`
}

// IsEmpty 没有任何筛选条件
func (f LogFilter) IsEmpty() bool {
	return f.Source == "" && f.Exam == "" && f.QuestionType == "" &&
		f.Topic == "" && f.ErrorType == "" && f.From == nil && f.To == nil
}

// Matches 判断单条记录是否满足筛选条件（不含 Limit）
func (f LogFilter) Matches(e *LogEntry) bool {
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if f.Exam != "" && e.Exam != f.Exam {
		return false
	}
	if f.QuestionType != "" && e.QuestionType != f.QuestionType {
		return false
	}
	if f.Topic != "" && !HasTag(e.Topics, f.Topic) {
		return false
	}
	if f.ErrorType != "" && !HasTag(e.ErrorTypes, f.ErrorType) {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(DayStart(*f.From)) {
		return false
	}
	if f.To != nil && !e.CreatedAt.Before(DayStart(*f.To).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// DayStart 当天 UTC 零点
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Normalize 去除首尾空格，空日期视为未设置
func (f *LogFilter) Normalize() {
	f.Source = strings.TrimSpace(f.Source)
	f.Exam = strings.TrimSpace(f.Exam)
	f.QuestionType = strings.TrimSpace(f.QuestionType)
	f.Topic = strings.TrimSpace(f.Topic)
	f.ErrorType = strings.TrimSpace(f.ErrorType)
	if f.From != nil && f.From.IsZero() {
		f.From = nil
	}
	if f.To != nil && f.To.IsZero() {
		f.To = nil
	}
	if f.Limit < 0 {
		f.Limit = 0
	}
}
