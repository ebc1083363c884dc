package quality

import (
	"time"
)

// Severity - важность нарушения
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Category - категория правила контроля качества
type Category string

const (
	CategoryRowCountFloor  Category = "row_count_floor"
	CategoryNotNull        Category = "not_null"
	CategoryUniqueKey      Category = "unique_key"
	CategoryEnumMembership Category = "enum_membership"
	CategoryReferential    Category = "referential_integrity"
	CategoryConsistency    Category = "consistency"
	CategoryMalformedValue Category = "malformed_value"
	CategoryIdentity       Category = "identity_conflict"
	CategoryRuleFailed     Category = "rule_failed"
)

// Violation - обнаруженный дефект данных. Не останавливает запуск
type Violation struct {
	Rule        string   `json:"rule"`
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Table       string   `json:"table"`
	Keys        []string `json:"keys"`
	Description string   `json:"description"`
}

// Report - отчет контроля качества одного этапа
type Report struct {
	RunID      string      `json:"run_id"`
	Stage      string      `json:"stage"`
	CreatedAt  time.Time   `json:"created_at"`
	Violations []Violation `json:"violations"`
}

// NewReport создает отчет этапа
func NewReport(runID, stage string, createdAt time.Time, violations []Violation) *Report {
	if violations == nil {
		violations = []Violation{}
	}
	return &Report{
		RunID:      runID,
		Stage:      stage,
		CreatedAt:  createdAt,
		Violations: violations,
	}
}

// CountBySeverity возвращает количество нарушений по важности
func (r *Report) CountBySeverity() map[Severity]int {
	counts := map[Severity]int{SeverityInfo: 0, SeverityWarn: 0, SeverityError: 0}
	for _, v := range r.Violations {
		counts[v.Severity]++
	}
	return counts
}

// HasErrors сообщает, есть ли в отчете нарушения уровня error
func (r *Report) HasErrors() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ByRule группирует количество нарушений по имени правила
func (r *Report) ByRule() map[string]int {
	counts := make(map[string]int)
	for _, v := range r.Violations {
		counts[v.Rule]++
	}
	return counts
}
