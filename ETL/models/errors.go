package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStructural - сырая выгрузка не содержит обязательных колонок (или самой таблицы)
var ErrStructural = errors.New("структурная ошибка входных данных")

// StructuralError описывает отсутствующий структурный элемент входного пакета
type StructuralError struct {
	Entity  Entity
	Missing []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%v: сущность %s, отсутствуют колонки: %s",
		ErrStructural, e.Entity, strings.Join(e.Missing, ", "))
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}
