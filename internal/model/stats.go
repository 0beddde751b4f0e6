package model

// RecentWindow 近期正确率统计的条数
const RecentWindow = 20

// RecentEntries 仪表盘最近记录展示条数
const RecentEntries = 10

type TopicPerformance struct {
	Topic    string  `json:"topic"`
	N        int     `json:"n"`
	Accuracy float64 `json:"accuracy"`
}

type ErrorTypeCount struct {
	ErrorType string `json:"errorType"`
	Count     int    `json:"count"`
}

// DashboardStats 仪表盘汇总
type DashboardStats struct {
	Total            int64              `json:"total"`
	Correct          int64              `json:"correct"`
	Accuracy         float64            `json:"accuracy"`
	RecentAccuracy   *float64           `json:"recentAccuracy"`
	TopicPerformance []TopicPerformance `json:"topicPerformance"`
	ErrorCounts      []ErrorTypeCount   `json:"errorCounts"`
	Recent           []LogEntry         `json:"recent"`
}

// GroupBy 可聚合的列
type GroupBy string

const (
	GroupBySource       GroupBy = "source"
	GroupByExam         GroupBy = "exam"
	GroupByQuestionType GroupBy = "question_type"
	GroupByConfidence   GroupBy = "confidence"
	GroupByTopics       GroupBy = "topics"
	GroupByErrorTypes   GroupBy = "error_types"
)

// MultiValued topics、error_types 为逗号连接的多值列
func (g GroupBy) MultiValued() bool {
	return g == GroupByTopics || g == GroupByErrorTypes
}

func (g GroupBy) Valid() bool {
	switch g {
	case GroupBySource, GroupByExam, GroupByQuestionType, GroupByConfidence, GroupByTopics, GroupByErrorTypes:
		return true
	}
	return false
}

type Metric string

const (
	MetricCount    Metric = "count"
	MetricAccuracy Metric = "accuracy"
)

func (m Metric) Valid() bool {
	return m == MetricCount || m == MetricAccuracy
}

// BlankGroup 单值列为空或 NULL 时的分组名
const BlankGroup = "(blank)"

// AnswerTags 仪表盘拆分标签所需的列
type AnswerTags struct {
	ID            int64  `db:"id"`
	Topics        string `db:"topics"`
	ErrorTypes    string `db:"error_types"`
	YourAnswer    string `db:"your_answer"`
	CorrectAnswer string `db:"correct_answer"`
}

func (a AnswerTags) IsCorrect() bool {
	return AnswersMatch(a.YourAnswer, a.CorrectAnswer)
}

// Tally 分组计数
type Tally struct {
	N       int
	Correct int
}

func (t Tally) Accuracy() float64 {
	if t.N == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.N)
}

func (t Tally) Metric(m Metric) float64 {
	if m == MetricAccuracy {
		return t.Accuracy()
	}
	return float64(t.N)
}

// TallyTags 将多值列拆开后逐标签计数，一条记录对同一标签只计一次
func TallyTags(rows []AnswerTags, groupBy GroupBy) map[string]*Tally {
	out := make(map[string]*Tally)
	for _, row := range rows {
		joined := row.Topics
		if groupBy == GroupByErrorTypes {
			joined = row.ErrorTypes
		}
		seen := make(map[string]bool)
		for _, tag := range SplitTags(joined) {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			t, ok := out[tag]
			if !ok {
				t = &Tally{}
				out[tag] = t
			}
			t.N++
			if row.IsCorrect() {
				t.Correct++
			}
		}
	}
	return out
}
