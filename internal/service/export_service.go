package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"step2hub/internal/model"
	"step2hub/pkg/monitoring"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "logs"

type ExportService struct {
	Store LogStore
}

func NewExportService(store LogStore) *ExportService {
	return &ExportService{Store: store}
}

// Row 按 model.Columns 顺序输出一条记录
func Row(e *model.LogEntry) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.CreatedAt.String(),
		e.Source,
		e.Exam,
		e.QNum,
		e.RawQuestion,
		e.Choices,
		e.YourAnswer,
		e.CorrectAnswer,
		strconv.Itoa(e.Confidence),
		e.ExplanationRaw,
		e.Topics,
		e.QuestionType,
		e.ErrorTypes,
		e.MissedClues,
		e.Notes,
	}
}

// WriteCSV 表头为列名，每条匹配的记录一行，返回写出的行数
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer, filter model.LogFilter) (int, error) {
	filter.Limit = 0
	entries, err := s.Store.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(model.Columns); err != nil {
		return 0, err
	}
	for i := range entries {
		if err := cw.Write(Row(&entries[i])); err != nil {
			return i, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(entries), err
	}

	monitoring.Exports.WithLabelValues("csv").Inc()
	return len(entries), nil
}

// WriteXLSX 与 CSV 相同的表格，单个工作表
func (s *ExportService) WriteXLSX(ctx context.Context, w io.Writer, filter model.LogFilter) (int, error) {
	filter.Limit = 0
	entries, err := s.Store.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, err
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return 0, err
	}

	header := make([]interface{}, len(model.Columns))
	for i, c := range model.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, err
	}

	for i := range entries {
		e := &entries[i]
		values := Row(e)
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		// id 与 confidence 保留数值类型
		row[0] = e.ID
		row[9] = e.Confidence

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return i, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return i, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return len(entries), err
	}

	if _, err := f.WriteTo(w); err != nil {
		return len(entries), err
	}

	monitoring.Exports.WithLabelValues("xlsx").Inc()
	return len(entries), nil
}
