package service

import (
	"context"
	"sort"
	"step2hub/internal/model"
)

// ReportStore 仪表盘所需的只读查询
type ReportStore interface {
	Totals(ctx context.Context) (total, correct int64, err error)
	AnswerTags(ctx context.Context, limit int) ([]model.AnswerTags, error)
	Aggregate(ctx context.Context, groupBy model.GroupBy, metric model.Metric) (map[string]float64, error)
}

type DashboardService struct {
	Reports ReportStore
	Logs    LogStore
}

func NewDashboardService(reports ReportStore, logs LogStore) *DashboardService {
	return &DashboardService{Reports: reports, Logs: logs}
}

// Stats 全表汇总。空表时 Accuracy 为 0，RecentAccuracy 为 nil
func (s *DashboardService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	total, correct, err := s.Reports.Totals(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.DashboardStats{
		Total:            total,
		Correct:          correct,
		TopicPerformance: []model.TopicPerformance{},
		ErrorCounts:      []model.ErrorTypeCount{},
		Recent:           []model.LogEntry{},
	}
	if total == 0 {
		return stats, nil
	}
	stats.Accuracy = float64(correct) / float64(total)

	rows, err := s.Reports.AnswerTags(ctx, 0)
	if err != nil {
		return nil, err
	}

	stats.RecentAccuracy = recentAccuracy(rows, model.RecentWindow)
	stats.TopicPerformance = topicPerformance(rows)
	stats.ErrorCounts = errorCounts(rows)

	recent, err := s.Logs.List(ctx, model.LogFilter{Limit: model.RecentEntries})
	if err != nil {
		return nil, err
	}
	stats.Recent = recent

	return stats, nil
}

// Aggregate 任意列的分组统计
func (s *DashboardService) Aggregate(ctx context.Context, groupBy model.GroupBy, metric model.Metric) (map[string]float64, error) {
	return s.Reports.Aggregate(ctx, groupBy, metric)
}

// Accuracy 空集合返回 0
func Accuracy(entries []model.LogEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	correct := 0
	for i := range entries {
		if entries[i].IsCorrect() {
			correct++
		}
	}
	return float64(correct) / float64(len(entries))
}

// rows 已按 id 倒序
func recentAccuracy(rows []model.AnswerTags, window int) *float64 {
	if len(rows) == 0 {
		return nil
	}
	if len(rows) > window {
		rows = rows[:window]
	}
	correct := 0
	for _, r := range rows {
		if r.IsCorrect() {
			correct++
		}
	}
	acc := float64(correct) / float64(len(rows))
	return &acc
}

// topicPerformance 按条数降序、正确率升序
func topicPerformance(rows []model.AnswerTags) []model.TopicPerformance {
	tallies := model.TallyTags(rows, model.GroupByTopics)
	out := make([]model.TopicPerformance, 0, len(tallies))
	for topic, t := range tallies {
		out = append(out, model.TopicPerformance{Topic: topic, N: t.N, Accuracy: t.Accuracy()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].N != out[j].N {
			return out[i].N > out[j].N
		}
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy < out[j].Accuracy
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

func errorCounts(rows []model.AnswerTags) []model.ErrorTypeCount {
	tallies := model.TallyTags(rows, model.GroupByErrorTypes)
	out := make([]model.ErrorTypeCount, 0, len(tallies))
	for errType, t := range tallies {
		out = append(out, model.ErrorTypeCount{ErrorType: errType, Count: t.N})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ErrorType < out[j].ErrorType
	})
	return out
}
