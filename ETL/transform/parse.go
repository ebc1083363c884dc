package transform

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

// Причины подстановки значения по умолчанию
const (
	reasonNotANumber   = "not_a_number"
	reasonZero         = "zero"
	reasonNegative     = "negative"
	reasonWrongLength  = "wrong_length"
	reasonInvalidDate  = "invalid_calendar_date"
	reasonFutureDate   = "future_date"
	reasonBadKeyFormat = "unparsable_product_key"
)

// Parsed - результат разбора значения с подстановкой по умолчанию.
// Valid - значение разобрано и пригодно. Reason заполнен, если исходное
// значение было непустым, но было заменено (или признано непригодным).
type Parsed[T any] struct {
	Value  T
	Valid  bool
	Reason string
}

// Defaulted сообщает, что непустое исходное значение было отброшено
func (p Parsed[T]) Defaulted() bool {
	return p.Reason != ""
}

// field возвращает обрезанное значение колонки; пустая строка считается NULL
func field(r models.RawRecord, column string) (string, bool) {
	v, ok := r.Get(column)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// ParseDate8 разбирает дату вида YYYYMMDD, пришедшую целым числом
func ParseDate8(raw string) Parsed[*time.Time] {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Parsed[*time.Time]{}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Parsed[*time.Time]{Reason: reasonNotANumber}
	}
	if n == 0 {
		return Parsed[*time.Time]{Reason: reasonZero}
	}
	if len(raw) != 8 || n < 0 {
		return Parsed[*time.Time]{Reason: reasonWrongLength}
	}
	t, err := time.Parse("20060102", raw)
	if err != nil {
		return Parsed[*time.Time]{Reason: reasonInvalidDate}
	}
	return Parsed[*time.Time]{Value: &t, Valid: true}
}

// ParseISODate разбирает дату YYYY-MM-DD; хвост со временем отбрасывается
func ParseISODate(raw string) Parsed[*time.Time] {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Parsed[*time.Time]{}
	}
	if len(raw) > 10 && raw[4] == '-' && raw[7] == '-' {
		raw = raw[:10]
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return Parsed[*time.Time]{Reason: reasonInvalidDate}
	}
	return Parsed[*time.Time]{Value: &t, Valid: true}
}

// ParseAmount разбирает целочисленную величину (сумма, количество, цена).
// Нулевые и отрицательные значения сохраняются в Value, но Valid = false.
func ParseAmount(raw string) Parsed[*int64] {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Parsed[*int64]{}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
			return Parsed[*int64]{Reason: reasonNotANumber}
		}
		n = int64(f)
	}
	switch {
	case n == 0:
		return Parsed[*int64]{Value: &n, Reason: reasonZero}
	case n < 0:
		return Parsed[*int64]{Value: &n, Reason: reasonNegative}
	}
	return Parsed[*int64]{Value: &n, Valid: true}
}

// ParseCost разбирает себестоимость: NULL -> 0, мусор и отрицательные -> 0 с причиной
func ParseCost(raw string) Parsed[int64] {
	p := ParseAmount(raw)
	switch {
	case p.Valid:
		return Parsed[int64]{Value: *p.Value, Valid: true}
	case p.Reason == reasonZero:
		return Parsed[int64]{Value: 0, Valid: true}
	case p.Reason == "":
		return Parsed[int64]{Value: 0, Valid: true}
	default:
		return Parsed[int64]{Value: 0, Reason: p.Reason}
	}
}

func dayBefore(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := t.AddDate(0, 0, -1)
	return &d
}

func int64Ptr(v int64) *int64 {
	return &v
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
