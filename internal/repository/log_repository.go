package repository

import (
	"context"
	"errors"
	"fmt"
	"step2hub/internal/model"
	"step2hub/internal/util"

	"gorm.io/gorm"
)

// distinctColumns 允许做下拉筛选项的列
var distinctColumns = map[string]bool{
	"source":        true,
	"exam":          true,
	"question_type": true,
}

type LogRepository struct {
	DB *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{DB: db}
}

// Insert 单条插入，回填自增 ID
func (r *LogRepository) Insert(ctx context.Context, entry *model.LogEntry) (int64, error) {
	if err := r.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, err
	}
	return entry.ID, nil
}

func (r *LogRepository) FindByID(ctx context.Context, id int64) (*model.LogEntry, error) {
	var entry model.LogEntry
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List 按 id 倒序返回满足条件的记录。
// 标签条件不下推到 SQL：SQLite 的 LOWER/LIKE 只处理 ASCII，统一在内存中按完整标签匹配
func (r *LogRepository) List(ctx context.Context, filter model.LogFilter) ([]model.LogEntry, error) {
	filter.Normalize()

	q := r.DB.WithContext(ctx).Model(&model.LogEntry{})
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
	}
	if filter.Exam != "" {
		q = q.Where("exam = ?", filter.Exam)
	}
	if filter.QuestionType != "" {
		q = q.Where("question_type = ?", filter.QuestionType)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", model.DayStart(*filter.From))
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", model.DayStart(*filter.To).AddDate(0, 0, 1))
	}

	postFilter := filter.Topic != "" || filter.ErrorType != ""
	if filter.Limit > 0 && !postFilter {
		q = q.Limit(filter.Limit)
	}

	var entries []model.LogEntry
	if err := q.Order("id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	if !postFilter {
		return entries, nil
	}

	matched := entries[:0]
	for i := range entries {
		if filter.Matches(&entries[i]) {
			matched = append(matched, entries[i])
		}
		if filter.Limit > 0 && len(matched) == filter.Limit {
			break
		}
	}
	return matched, nil
}

// Count 满足条件的记录数
func (r *LogRepository) Count(ctx context.Context, filter model.LogFilter) (int, error) {
	filter.Limit = 0
	entries, err := r.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Distinct 某列非空的去重值，升序
func (r *LogRepository) Distinct(ctx context.Context, column string) ([]string, error) {
	if !distinctColumns[column] {
		return nil, fmt.Errorf("distinct not supported for column %q", column)
	}
	var values []string
	err := r.DB.WithContext(ctx).Model(&model.LogEntry{}).
		Where(column+" IS NOT NULL AND "+column+" <> ''").
		Distinct(column).
		Order(column).
		Pluck(column, &values).Error
	return values, err
}
