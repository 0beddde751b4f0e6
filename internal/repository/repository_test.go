package repository

import (
	"context"
	"path/filepath"
	"step2hub/internal/model"
	"step2hub/internal/util"
	"step2hub/pkg/database"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.Open(&database.SQLiteBackend{Path: filepath.Join(t.TempDir(), "test.db")}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, repo *LogRepository, entries ...model.LogEntry) {
	t.Helper()
	for i := range entries {
		_, err := repo.Insert(context.Background(), &entries[i])
		require.NoError(t, err)
	}
}

func at(day int) model.Timestamp {
	return model.NewTimestamp(time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC))
}

func sampleEntries() []model.LogEntry {
	return []model.LogEntry{
		{CreatedAt: at(1), Source: "NBME", Exam: "NBME 27", YourAnswer: "B", CorrectAnswer: "b", Confidence: 4,
			Topics: "Cardiology, Nephrology", QuestionType: model.QuestionTypeManagement, ErrorTypes: "Content gap"},
		{CreatedAt: at(2), Source: "UWorld", Exam: "Block 15", YourAnswer: "B", CorrectAnswer: "C", Confidence: 2,
			Topics: "Cardiology", QuestionType: model.QuestionTypeDiagnosis, ErrorTypes: "Interpretation, Content gap"},
		{CreatedAt: at(3), Source: "UWorld", Exam: "Block 16", YourAnswer: "A", CorrectAnswer: "D", Confidence: 2,
			Topics: "Cardiology Extra", QuestionType: model.QuestionTypeManagement, ErrorTypes: "Math/units"},
	}
}

func TestInsertAndFind(t *testing.T) {
	repo := NewLogRepository(openTestDB(t).Gorm)
	ctx := context.Background()

	entry := model.LogEntry{
		CreatedAt:      at(1),
		Source:         "NBME",
		RawQuestion:    "A 65-year-old man with heart failure...",
		YourAnswer:     "B",
		CorrectAnswer:  "C",
		Confidence:     3,
		ExplanationRaw: "Loop diuretics are first-line.",
		Topics:         "Cardiology",
		QuestionType:   model.QuestionTypeManagement,
		ErrorTypes:     "Content gap, Priority/sequence",
	}
	id, err := repo.Insert(ctx, &entry)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entry.RawQuestion, got.RawQuestion)
	assert.Equal(t, entry.ErrorTypes, got.ErrorTypes)
	assert.True(t, got.CreatedAt.Equal(entry.CreatedAt.Time))

	_, err = repo.FindByID(ctx, 99)
	assert.ErrorIs(t, err, util.ErrLogNotFound)
}

func TestListFilters(t *testing.T) {
	repo := NewLogRepository(openTestDB(t).Gorm)
	ctx := context.Background()
	seed(t, repo, sampleEntries()...)

	all, err := repo.List(ctx, model.LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	bySource, err := repo.List(ctx, model.LogFilter{Source: "UWorld"})
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	// 完整标签匹配，"Cardiology Extra" 不算 Cardiology
	byTopic, err := repo.List(ctx, model.LogFilter{Topic: "Cardiology"})
	require.NoError(t, err)
	assert.Len(t, byTopic, 2)

	byError, err := repo.List(ctx, model.LogFilter{ErrorType: "Content gap", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byError, 1)
	assert.Equal(t, int64(2), byError[0].ID)

	from := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	byDate, err := repo.List(ctx, model.LogFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "Block 15", byDate[0].Exam)

	limited, err := repo.List(ctx, model.LogFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	n, err := repo.Count(ctx, model.LogFilter{QuestionType: model.QuestionTypeManagement, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListTagFilterIsLiteral(t *testing.T) {
	repo := NewLogRepository(openTestDB(t).Gorm)
	seed(t, repo, model.LogEntry{CreatedAt: at(1), Topics: "Cardiology"})

	for _, tag := range []string{"%", "_ardiology", "Cardio"} {
		entries, err := repo.List(context.Background(), model.LogFilter{Topic: tag})
		require.NoError(t, err)
		assert.Empty(t, entries, tag)
	}
}

func TestListNonASCIITags(t *testing.T) {
	repo := NewLogRepository(openTestDB(t).Gorm)
	ctx := context.Background()
	seed(t, repo,
		model.LogEntry{CreatedAt: at(1), Topics: "Ödem, Cardiology", ErrorTypes: "Übersehen"},
		model.LogEntry{CreatedAt: at(2), Topics: "Cardiology", ErrorTypes: "Content gap"},
	)

	for _, tag := range []string{"Ödem", "ödem", "ÖDEM"} {
		entries, err := repo.List(ctx, model.LogFilter{Topic: tag})
		require.NoError(t, err)
		require.Len(t, entries, 1, tag)
		assert.Equal(t, int64(1), entries[0].ID)
	}

	byError, err := repo.List(ctx, model.LogFilter{ErrorType: "übersehen"})
	require.NoError(t, err)
	assert.Len(t, byError, 1)

	partial, err := repo.List(ctx, model.LogFilter{Topic: "Öd"})
	require.NoError(t, err)
	assert.Empty(t, partial)
}

func TestListRoundTripsAllFields(t *testing.T) {
	repo := NewLogRepository(openTestDB(t).Gorm)
	ctx := context.Background()

	entry := model.LogEntry{
		CreatedAt:      model.NewTimestamp(time.Date(2024, 5, 7, 8, 9, 10, 0, time.UTC)),
		Source:         "UWorld",
		Exam:           "Block 15, timed",
		QNum:           "#42",
		RawQuestion:    "Line one, with comma\nLine two\n\tindented \"quoted\"",
		Choices:        "A. Ödem\nB. 水肿\nC. naïve",
		YourAnswer:     "B",
		CorrectAnswer:  "C",
		Confidence:     5,
		ExplanationRaw: "First-line: loop diuretic; avoid 100% O2.",
		Topics:         "Cardiology, Ödem",
		QuestionType:   model.QuestionTypeManagement,
		ErrorTypes:     "Content gap, Priority/sequence",
		MissedClues:    "JVP ↑, crackles",
		Notes:          "review 'CHF' deck",
	}
	seed(t, repo, entry)

	entries, err := repo.List(ctx, model.LogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]

	assert.Equal(t, int64(1), got.ID)
	assert.True(t, got.CreatedAt.Equal(entry.CreatedAt.Time), got.CreatedAt.String())

	want := entry
	want.ID = got.ID
	want.CreatedAt = model.Timestamp{}
	got.CreatedAt = model.Timestamp{}
	assert.Equal(t, want, got)
}

func TestDistinct(t *testing.T) {
	repo := NewLogRepository(openTestDB(t).Gorm)
	ctx := context.Background()
	seed(t, repo, sampleEntries()...)
	seed(t, repo, model.LogEntry{CreatedAt: at(4)})

	sources, err := repo.Distinct(ctx, "source")
	require.NoError(t, err)
	assert.Equal(t, []string{"NBME", "UWorld"}, sources)

	_, err = repo.Distinct(ctx, "notes; DROP TABLE logs")
	assert.Error(t, err)
}

func TestReportTotalsAndAggregate(t *testing.T) {
	db := openTestDB(t)
	logs := NewLogRepository(db.Gorm)
	reports := NewReportRepository(db.SQL)
	ctx := context.Background()

	total, correct, err := reports.Totals(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, correct)

	seed(t, logs, sampleEntries()...)

	total, correct, err = reports.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(1), correct)

	rows, err := reports.AnswerTags(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0].ID)

	bySource, err := reports.Aggregate(ctx, model.GroupBySource, model.MetricCount)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"NBME": 1, "UWorld": 2}, bySource)

	byConfidence, err := reports.Aggregate(ctx, model.GroupByConfidence, model.MetricAccuracy)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"4": 1, "2": 0}, byConfidence)

	byTopic, err := reports.Aggregate(ctx, model.GroupByTopics, model.MetricAccuracy)
	require.NoError(t, err)
	assert.Equal(t, 0.5, byTopic["Cardiology"])
	assert.Equal(t, 1.0, byTopic["Nephrology"])
	assert.Equal(t, 0.0, byTopic["Cardiology Extra"])

	_, err = reports.Aggregate(ctx, model.GroupBy("notes"), model.MetricCount)
	assert.ErrorIs(t, err, util.ErrInvalidGroupBy)
	_, err = reports.Aggregate(ctx, model.GroupBySource, model.Metric("sum"))
	assert.ErrorIs(t, err, util.ErrInvalidMetric)
}

// 对错判断与 LogEntry.IsCorrect 一致：Unicode 大小写与任意空白
func TestReportNonASCIIAnswers(t *testing.T) {
	db := openTestDB(t)
	logs := NewLogRepository(db.Gorm)
	reports := NewReportRepository(db.SQL)
	ctx := context.Background()

	entries := []model.LogEntry{
		{CreatedAt: at(1), Source: "NBME", YourAnswer: "Ödem", CorrectAnswer: "ödem", Topics: "Nephrology"},
		{CreatedAt: at(2), Source: "NBME", YourAnswer: "B\t", CorrectAnswer: "\nb", Topics: "Nephrology"},
	}
	for i := range entries {
		require.True(t, entries[i].IsCorrect())
	}
	seed(t, logs, entries...)

	total, correct, err := reports.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(2), correct)

	bySource, err := reports.Aggregate(ctx, model.GroupBySource, model.MetricAccuracy)
	require.NoError(t, err)
	byTopic, err := reports.Aggregate(ctx, model.GroupByTopics, model.MetricAccuracy)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"NBME": 1}, bySource)
	assert.Equal(t, map[string]float64{"Nephrology": 1}, byTopic)
}

func TestAggregateBlankGroup(t *testing.T) {
	db := openTestDB(t)
	logs := NewLogRepository(db.Gorm)
	seed(t, logs, model.LogEntry{CreatedAt: at(1), Source: ""}, model.LogEntry{CreatedAt: at(2), Source: "NBME"})
	_, err := db.SQL.Exec(`INSERT INTO logs (created_at, source) VALUES ('2024-05-03T10:00:00', NULL)`)
	require.NoError(t, err)

	result, err := NewReportRepository(db.SQL).Aggregate(context.Background(), model.GroupBySource, model.MetricCount)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{model.BlankGroup: 2, "NBME": 1}, result)
}
