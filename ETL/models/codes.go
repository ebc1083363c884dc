package models

import (
	"strings"
	"unicode"
)

// Unknown - значение по умолчанию для всех перечислений и нераспознанных кодов
const Unknown = "Unknown"

// Допустимые значения перечислений
const (
	MaritalMarried = "Married"
	MaritalSingle  = "Single"

	GenderMale   = "Male"
	GenderFemale = "Female"

	LineMountain = "Mountain"
	LineRoad     = "Road"
	LineTouring  = "Touring"
	LineOther    = "Other"
)

var (
	MaritalStatuses = []string{MaritalMarried, MaritalSingle, Unknown}
	Genders         = []string{GenderMale, GenderFemale, Unknown}
	ProductLines    = []string{LineMountain, LineRoad, LineTouring, LineOther, Unknown}
)

// MaritalStatusFromCode переводит код CRM (M/S) в значение перечисления
func MaritalStatusFromCode(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "M":
		return MaritalMarried
	case "S":
		return MaritalSingle
	default:
		return Unknown
	}
}

// GenderFromCRMCode переводит код пола CRM (M/F)
func GenderFromCRMCode(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "M":
		return GenderMale
	case "F":
		return GenderFemale
	default:
		return Unknown
	}
}

// GenderFromERPCode переводит код пола ERP: допускаются и коды, и полные названия
func GenderFromERPCode(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "M", "MALE":
		return GenderMale
	case "F", "FEMALE":
		return GenderFemale
	default:
		return Unknown
	}
}

// ProductLineFromCode переводит код продуктовой линейки
func ProductLineFromCode(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "M":
		return LineMountain
	case "R":
		return LineRoad
	case "T":
		return LineTouring
	case "S":
		return LineOther
	default:
		return Unknown
	}
}

// countryCodes - фиксированная таблица кодов стран ERP
var countryCodes = map[string]string{
	"DE":  "Germany",
	"US":  "United States",
	"USA": "United States",
}

// NormalizeCountry приводит код или название страны из ERP к единому виду
func NormalizeCountry(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Unknown
	}
	if name, ok := countryCodes[strings.ToUpper(trimmed)]; ok {
		return name
	}
	return trimmed
}

// DefaultERPKeyPrefixes - устаревшие префиксы ключей клиентов ERP
var DefaultERPKeyPrefixes = []string{"NAS"}

// NormalizeERPCustomerKey приводит ключ клиента ERP к формату customer_number CRM:
// отбрасывает ведущие не буквенно-цифровые символы и устаревший префикс, удаляет дефисы.
// Функция идемпотентна.
func NormalizeERPCustomerKey(raw string, prefixes []string) string {
	key := strings.TrimLeftFunc(strings.TrimSpace(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, prefix := range prefixes {
		if prefix != "" && len(key) > len(prefix) && strings.EqualFold(key[:len(prefix)], prefix) {
			key = key[len(prefix):]
			break
		}
	}
	return strings.ReplaceAll(key, "-", "")
}
