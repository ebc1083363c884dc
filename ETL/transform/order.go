package transform

import (
	"sort"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

func entityPosition(e models.Entity) int {
	for i, entity := range models.AllEntities {
		if entity == e {
			return i
		}
	}
	return len(models.AllEntities)
}

// sortRejected упорядочивает отказы по сущности, сохраняя порядок внутри сущности
func sortRejected(rejected []models.RejectedRecord) {
	sort.SliceStable(rejected, func(i, j int) bool {
		return entityPosition(rejected[i].Entity) < entityPosition(rejected[j].Entity)
	})
}

// sortIssues упорядочивает дефекты по таблице, сохраняя порядок внутри таблицы
func sortIssues(issues []models.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Table < issues[j].Table
	})
}
