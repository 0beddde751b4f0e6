package service

import (
	"context"
	"fmt"
	"step2hub/internal/model"
	"step2hub/pkg/logger"
	"step2hub/pkg/monitoring"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultConfidence = 3
	MinConfidence     = 1
	MaxConfidence     = 5
)

// LogStore logs 表的读写，sqlite 与远程数据库实现一致
type LogStore interface {
	Insert(ctx context.Context, entry *model.LogEntry) (int64, error)
	FindByID(ctx context.Context, id int64) (*model.LogEntry, error)
	List(ctx context.Context, filter model.LogFilter) ([]model.LogEntry, error)
	Distinct(ctx context.Context, column string) ([]string, error)
}

// LogInput 表单或 JSON 提交的原始字段。
// Topics / ErrorTypes 为 nil、QuestionType 为空时使用自动建议
type LogInput struct {
	Source         string   `form:"source" json:"source"`
	Exam           string   `form:"exam" json:"exam"`
	QNum           string   `form:"qnum" json:"qnum"`
	RawQuestion    string   `form:"raw_question" json:"rawQuestion"`
	Choices        string   `form:"choices" json:"choices"`
	YourAnswer     string   `form:"your_answer" json:"yourAnswer"`
	CorrectAnswer  string   `form:"correct_answer" json:"correctAnswer"`
	Confidence     int      `form:"confidence" json:"confidence"`
	ExplanationRaw string   `form:"explanation_raw" json:"explanationRaw"`
	Topics         []string `form:"topics" json:"topics"`
	QuestionType   string   `form:"question_type" json:"questionType"`
	ErrorTypes     []string `form:"error_types" json:"errorTypes"`
	MissedClues    string   `form:"missed_clues" json:"missedClues"`
	Notes          string   `form:"notes" json:"notes"`
}

func (in LogInput) SuggestInput() model.SuggestInput {
	return model.SuggestInput{
		RawQuestion:    in.RawQuestion,
		ExplanationRaw: in.ExplanationRaw,
		YourAnswer:     in.YourAnswer,
		CorrectAnswer:  in.CorrectAnswer,
	}
}

// ValidationError 表单校验失败，记录不保存
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

type LogService struct {
	Store   LogStore
	Tagger  *TaggingService
	backend string
}

func NewLogService(store LogStore, tagger *TaggingService, backend string) *LogService {
	return &LogService{Store: store, Tagger: tagger, backend: backend}
}

// Validate 校验必填项，返回 *ValidationError 或 nil
func (s *LogService) Validate(in LogInput) error {
	var msgs []string
	if strings.TrimSpace(in.RawQuestion) == "" {
		msgs = append(msgs, "Please paste the question stem.")
	} else if strings.TrimSpace(in.YourAnswer) == "" || strings.TrimSpace(in.CorrectAnswer) == "" {
		msgs = append(msgs, "Enter both your answer and the correct answer.")
	}
	if in.Confidence != 0 && (in.Confidence < MinConfidence || in.Confidence > MaxConfidence) {
		msgs = append(msgs, fmt.Sprintf("Confidence must be between %d and %d.", MinConfidence, MaxConfidence))
	}
	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}

// BuildEntry 去除首尾空格，补齐默认值与自动建议的标签
func (s *LogService) BuildEntry(in LogInput) *model.LogEntry {
	in = trimInput(in)

	var suggestion model.Suggestion
	if in.QuestionType == "" || in.Topics == nil || in.ErrorTypes == nil {
		suggestion = s.Tagger.Suggest(in.SuggestInput())
	}
	if in.QuestionType == "" {
		in.QuestionType = suggestion.QuestionType
	}
	topics := cleanTags(in.Topics)
	if in.Topics == nil {
		topics = suggestion.Topics
	}
	errorTypes := cleanTags(in.ErrorTypes)
	if in.ErrorTypes == nil {
		errorTypes = suggestion.ErrorTypes
	}
	if in.Confidence == 0 {
		in.Confidence = DefaultConfidence
	}

	return &model.LogEntry{
		CreatedAt:      model.Now(),
		Source:         in.Source,
		Exam:           in.Exam,
		QNum:           in.QNum,
		RawQuestion:    in.RawQuestion,
		Choices:        in.Choices,
		YourAnswer:     in.YourAnswer,
		CorrectAnswer:  in.CorrectAnswer,
		Confidence:     in.Confidence,
		ExplanationRaw: in.ExplanationRaw,
		Topics:         model.JoinTags(topics),
		QuestionType:   in.QuestionType,
		ErrorTypes:     model.JoinTags(errorTypes),
		MissedClues:    in.MissedClues,
		Notes:          in.Notes,
	}
}

// CreateLog 校验并保存一条记录
func (s *LogService) CreateLog(ctx context.Context, in LogInput) (*model.LogEntry, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	entry := s.BuildEntry(in)
	id, err := s.Store.Insert(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("save failed: %w", err)
	}
	entry.ID = id

	monitoring.LogsSaved.WithLabelValues(s.backend).Inc()
	logger.Log.Info("Log saved",
		zap.Int64("id", id),
		zap.String("question_type", entry.QuestionType),
		zap.String("topics", entry.Topics))
	return entry, nil
}

func (s *LogService) GetLog(ctx context.Context, id int64) (*model.LogEntry, error) {
	return s.Store.FindByID(ctx, id)
}

func (s *LogService) ListLogs(ctx context.Context, filter model.LogFilter) ([]model.LogEntry, error) {
	return s.Store.List(ctx, filter)
}

// FilterOptions 复习页的下拉筛选项
type FilterOptions struct {
	Sources       []string `json:"sources"`
	Exams         []string `json:"exams"`
	QuestionTypes []string `json:"questionTypes"`
	Topics        []string `json:"topics"`
	ErrorTypes    []string `json:"errorTypes"`
}

func (s *LogService) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	sources, err := s.Store.Distinct(ctx, "source")
	if err != nil {
		return nil, err
	}
	exams, err := s.Store.Distinct(ctx, "exam")
	if err != nil {
		return nil, err
	}
	qtypes, err := s.Store.Distinct(ctx, "question_type")
	if err != nil {
		return nil, err
	}
	return &FilterOptions{
		Sources:       sources,
		Exams:         exams,
		QuestionTypes: qtypes,
		Topics:        s.Tagger.TopicOptions(),
		ErrorTypes:    s.Tagger.ErrorTypeOptions(),
	}, nil
}

func trimInput(in LogInput) LogInput {
	in.Source = strings.TrimSpace(in.Source)
	in.Exam = strings.TrimSpace(in.Exam)
	in.QNum = strings.TrimSpace(in.QNum)
	in.RawQuestion = strings.TrimSpace(in.RawQuestion)
	in.Choices = strings.TrimSpace(in.Choices)
	in.YourAnswer = strings.TrimSpace(in.YourAnswer)
	in.CorrectAnswer = strings.TrimSpace(in.CorrectAnswer)
	in.ExplanationRaw = strings.TrimSpace(in.ExplanationRaw)
	in.QuestionType = strings.TrimSpace(in.QuestionType)
	in.MissedClues = strings.TrimSpace(in.MissedClues)
	in.Notes = strings.TrimSpace(in.Notes)
	return in
}
