package repository

import (
	"context"
	"database/sql"
	"fmt"
	"step2hub/internal/model"
	"step2hub/internal/util"

	"github.com/jmoiron/sqlx"
)

// ReportRepository 仪表盘的只读查询。SQL 只负责取列，
// 大小写与空白相关的比较都在 Go 中完成，各数据库结果一致
type ReportRepository struct {
	DB *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

type answerRow struct {
	YourAnswer    string `db:"your_answer"`
	CorrectAnswer string `db:"correct_answer"`
}

// Totals 总条数与答对条数。对错在 Go 中判断，与 LogEntry.IsCorrect 保持一致
func (r *ReportRepository) Totals(ctx context.Context) (total, correct int64, err error) {
	var rows []answerRow
	query := `SELECT COALESCE(your_answer, '') AS your_answer, COALESCE(correct_answer, '') AS correct_answer FROM logs`
	if err := r.DB.SelectContext(ctx, &rows, query); err != nil {
		return 0, 0, fmt.Errorf("failed to count logs: %w", err)
	}
	for _, row := range rows {
		if model.AnswersMatch(row.YourAnswer, row.CorrectAnswer) {
			correct++
		}
	}
	return int64(len(rows)), correct, nil
}

// AnswerTags 全表的标签与答案列，按 id 倒序
func (r *ReportRepository) AnswerTags(ctx context.Context, limit int) ([]model.AnswerTags, error) {
	query := `SELECT id,
		COALESCE(topics, '') AS topics,
		COALESCE(error_types, '') AS error_types,
		COALESCE(your_answer, '') AS your_answer,
		COALESCE(correct_answer, '') AS correct_answer
		FROM logs ORDER BY id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []model.AnswerTags
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load log tags: %w", err)
	}
	return rows, nil
}

type groupRow struct {
	Group         sql.NullString `db:"grp"`
	YourAnswer    string         `db:"your_answer"`
	CorrectAnswer string         `db:"correct_answer"`
}

// Aggregate 按列分组统计条数或正确率。
// topics / error_types 为多值列，拆分后在内存中统计
func (r *ReportRepository) Aggregate(ctx context.Context, groupBy model.GroupBy, metric model.Metric) (map[string]float64, error) {
	if !groupBy.Valid() {
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidGroupBy, groupBy)
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidMetric, metric)
	}

	result := make(map[string]float64)

	if groupBy.MultiValued() {
		rows, err := r.AnswerTags(ctx, 0)
		if err != nil {
			return nil, err
		}
		for tag, tally := range model.TallyTags(rows, groupBy) {
			result[tag] = tally.Metric(metric)
		}
		return result, nil
	}

	// groupBy 已通过白名单校验，可直接拼接
	query := fmt.Sprintf(`SELECT %s AS grp,
		COALESCE(your_answer, '') AS your_answer,
		COALESCE(correct_answer, '') AS correct_answer
		FROM logs`, string(groupBy))

	var rows []groupRow
	if err := r.DB.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to aggregate logs: %w", err)
	}

	// NULL 与空串合并到同一组
	tallies := make(map[string]*model.Tally)
	for _, row := range rows {
		key := row.Group.String
		if !row.Group.Valid || key == "" {
			key = model.BlankGroup
		}
		t, ok := tallies[key]
		if !ok {
			t = &model.Tally{}
			tallies[key] = t
		}
		t.N++
		if model.AnswersMatch(row.YourAnswer, row.CorrectAnswer) {
			t.Correct++
		}
	}
	for key, t := range tallies {
		result[key] = t.Metric(metric)
	}
	return result, nil
}
