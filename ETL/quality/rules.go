package quality

import (
	"fmt"
	"strings"
)

// Finding - одно срабатывание правила
type Finding struct {
	Keys        []string
	Description string
}

// Rule - правило проверки таблицы строк типа T
type Rule[T any] struct {
	Name     string
	Category Category
	Severity Severity
	Eval     func(rows []T) []Finding
}

// Check применяет правила к таблице и возвращает нарушения.
// Функция никогда не паникует: паника внутри правила превращается в нарушение rule_failed.
func Check[T any](table string, rows []T, rules ...Rule[T]) []Violation {
	var violations []Violation
	for _, rule := range rules {
		violations = append(violations, apply(table, rows, rule)...)
	}
	return violations
}

func apply[T any](table string, rows []T, rule Rule[T]) (out []Violation) {
	defer func() {
		if r := recover(); r != nil {
			out = []Violation{{
				Rule:        rule.Name,
				Category:    CategoryRuleFailed,
				Severity:    SeverityError,
				Table:       table,
				Description: fmt.Sprintf("правило завершилось с паникой: %v", r),
			}}
		}
	}()

	if rule.Eval == nil {
		return nil
	}
	for _, f := range rule.Eval(rows) {
		out = append(out, Violation{
			Rule:        rule.Name,
			Category:    rule.Category,
			Severity:    rule.Severity,
			Table:       table,
			Keys:        f.Keys,
			Description: f.Description,
		})
	}
	return out
}

// NotNull проверяет, что обязательная колонка заполнена
func NotNull[T any](column string, severity Severity, key func(T) string, present func(T) bool) Rule[T] {
	return Rule[T]{
		Name:     "not_null_" + column,
		Category: CategoryNotNull,
		Severity: severity,
		Eval: func(rows []T) []Finding {
			var out []Finding
			for i, row := range rows {
				if !present(row) {
					out = append(out, Finding{
						Keys:        []string{rowKey(key(row), i)},
						Description: fmt.Sprintf("колонка %s не заполнена", column),
					})
				}
			}
			return out
		},
	}
}

// UniqueKey проверяет уникальность ключа. Пустые ключи не учитываются.
// На каждый повторяющийся ключ выдается одно нарушение.
func UniqueKey[T any](column string, severity Severity, key func(T) string) Rule[T] {
	return Rule[T]{
		Name:     "unique_" + column,
		Category: CategoryUniqueKey,
		Severity: severity,
		Eval: func(rows []T) []Finding {
			counts := make(map[string]int, len(rows))
			var order []string
			for _, row := range rows {
				k := key(row)
				if k == "" {
					continue
				}
				if counts[k] == 0 {
					order = append(order, k)
				}
				counts[k]++
			}
			var out []Finding
			for _, k := range order {
				if counts[k] > 1 {
					out = append(out, Finding{
						Keys:        []string{k},
						Description: fmt.Sprintf("ключ %s=%s встречается %d раз", column, k, counts[k]),
					})
				}
			}
			return out
		},
	}
}

// EnumMember проверяет, что значение колонки входит в допустимое перечисление
func EnumMember[T any](column string, allowed []string, key func(T) string, value func(T) string) Rule[T] {
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	return Rule[T]{
		Name:     "enum_" + column,
		Category: CategoryEnumMembership,
		Severity: SeverityError,
		Eval: func(rows []T) []Finding {
			var out []Finding
			for i, row := range rows {
				if v := value(row); !set[v] {
					out = append(out, Finding{
						Keys: []string{rowKey(key(row), i)},
						Description: fmt.Sprintf("значение %q колонки %s вне допустимого набора [%s]",
							v, column, strings.Join(allowed, ", ")),
					})
				}
			}
			return out
		},
	}
}

// Consistency проверяет производное условие строки. check возвращает пустую
// строку, если строка корректна, иначе описание нарушения
func Consistency[T any](name string, severity Severity, key func(T) string, check func(T) string) Rule[T] {
	return Rule[T]{
		Name:     name,
		Category: CategoryConsistency,
		Severity: severity,
		Eval: func(rows []T) []Finding {
			var out []Finding
			for i, row := range rows {
				if msg := check(row); msg != "" {
					out = append(out, Finding{
						Keys:        []string{rowKey(key(row), i)},
						Description: msg,
					})
				}
			}
			return out
		},
	}
}

// Referential проверяет, что внешний ключ строки разрешается
func Referential[T any](column string, key func(T) string, resolves func(T) bool) Rule[T] {
	return Rule[T]{
		Name:     "fk_" + column,
		Category: CategoryReferential,
		Severity: SeverityError,
		Eval: func(rows []T) []Finding {
			var out []Finding
			for i, row := range rows {
				if !resolves(row) {
					out = append(out, Finding{
						Keys:        []string{rowKey(key(row), i)},
						Description: fmt.Sprintf("внешний ключ %s не найден в измерении", column),
					})
				}
			}
			return out
		},
	}
}

// RowCountFloor предупреждает, если строк стало меньше, чем ratio от предыдущего запуска.
// previous <= 0 означает, что предыдущего запуска нет.
func RowCountFloor[T any](previous int, ratio float64) Rule[T] {
	return Rule[T]{
		Name:     "row_count_floor",
		Category: CategoryRowCountFloor,
		Severity: SeverityWarn,
		Eval: func(rows []T) []Finding {
			if previous <= 0 {
				return nil
			}
			floor := int(float64(previous) * ratio)
			if len(rows) >= floor {
				return nil
			}
			return []Finding{{
				Description: fmt.Sprintf("строк %d, в предыдущем запуске %d (порог %d)", len(rows), previous, floor),
			}}
		},
	}
}

func rowKey(key string, index int) string {
	if key != "" {
		return key
	}
	return fmt.Sprintf("#%d", index)
}
