package gold

import (
	"sort"

	"github.com/LilVoxy/sales_dwh/ETL/models"
)

const goldProducts = "gold.dim_products"

// ProductDimension - построенное измерение продуктов и индекс поиска суррогатного ключа
type ProductDimension struct {
	Rows   []models.DimProduct
	keys   map[string]int // нормализованный product_number -> product_key
	folder *keyFolder
}

// Key возвращает суррогатный ключ продукта по product_number
func (d ProductDimension) Key(productNumber string) (int, bool) {
	if d.folder == nil {
		return 0, false
	}
	k, ok := d.keys[d.folder.fold(productNumber)]
	return k, ok
}

// BuildProductDimension назначает суррогатные ключи актуальным версиям продуктов.
// Номера, совпадающие после нормализации регистра, сливаются в пользу версии с
// самой поздней start_date.
func BuildProductDimension(products map[string]ResolvedProduct) (ProductDimension, []models.Issue) {
	folder := newKeyFolder()

	ordered := make([]ResolvedProduct, 0, len(products))
	for _, p := range products {
		ordered = append(ordered, p)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return compareNatural(ordered[i].ProductNumber, ordered[j].ProductNumber) < 0
	})

	var issues []models.Issue
	index := make(map[string]int)
	var merged []ResolvedProduct
	var keys []string
	var numbers [][]string
	for _, p := range ordered {
		key := folder.fold(p.ProductNumber)
		i, ok := index[key]
		if !ok {
			index[key] = len(merged)
			merged = append(merged, p)
			keys = append(keys, key)
			numbers = append(numbers, []string{p.ProductNumber})
			continue
		}
		numbers[i] = append(numbers[i], p.ProductNumber)
		issues = append(issues, models.Issue{
			Kind:   models.IssueIdentityConflict,
			Table:  goldProducts,
			Key:    key,
			Column: "product_number",
			Value:  joinKeys(numbers[i]),
			Reason: "product_number differs only by case, rows merged",
		})
		if newer(p.StartDate, merged[i].StartDate) {
			p.Category = firstKnown(p.Category, merged[i].Category, "")
			p.Subcategory = firstKnown(p.Subcategory, merged[i].Subcategory, "")
			p.Maintenance = firstKnown(p.Maintenance, merged[i].Maintenance, "")
			merged[i] = p
		} else {
			merged[i].Category = firstKnown(merged[i].Category, p.Category, "")
			merged[i].Subcategory = firstKnown(merged[i].Subcategory, p.Subcategory, "")
			merged[i].Maintenance = firstKnown(merged[i].Maintenance, p.Maintenance, "")
		}
	}

	// Порядок ключей задается нормализованным номером, а не написанием версии,
	// ставшей основой группы
	idx := make([]int, len(merged))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return compareNatural(keys[idx[a]], keys[idx[b]]) < 0
	})

	dim := ProductDimension{
		Rows:   make([]models.DimProduct, len(merged)),
		keys:   make(map[string]int, len(merged)),
		folder: folder,
	}
	for n, i := range idx {
		p := merged[i]
		dim.Rows[n] = models.DimProduct{
			ProductKey:    n + 1,
			ProductID:     p.ProductID,
			ProductNumber: p.ProductNumber,
			ProductName:   p.ProductName,
			CategoryID:    p.CategoryID,
			Category:      p.Category,
			Subcategory:   p.Subcategory,
			Maintenance:   p.Maintenance,
			Cost:          p.Cost,
			ProductLine:   p.ProductLine,
			StartDate:     p.StartDate,
		}
		dim.keys[keys[i]] = n + 1
	}
	return dim, issues
}
