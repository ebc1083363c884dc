package gold

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// keyFolder приводит бизнес-ключи к каноническому виду: обрезка пробелов и
// перевод в верхний регистр по правилам Unicode. cases.Caser хранит
// состояние, поэтому у каждого построителя свой экземпляр.
type keyFolder struct {
	caser cases.Caser
}

func newKeyFolder() *keyFolder {
	return &keyFolder{caser: cases.Upper(language.Und)}
}

func (f *keyFolder) fold(key string) string {
	return f.caser.String(strings.TrimSpace(key))
}

// compareNatural сравнивает естественные ключи: численно, если оба ключа целые,
// иначе лексикографически
func compareNatural(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// newer сообщает, что дата a строго позже b (NULL никогда не новее)
func newer(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// firstKnown возвращает base, если оно заполнено и не Unknown, иначе fallback
func firstKnown(base, fallback, unknown string) string {
	if base != "" && base != unknown {
		return base
	}
	if fallback != "" {
		return fallback
	}
	return base
}
