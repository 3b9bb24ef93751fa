package pricing

import (
	"sort"

	"proteinwatch/models"
)

// ClassifyWarning recomputes the warning flag for one run. A product needs
// operator attention when no price was obtained, the nutrition fields
// required for protein-price math are missing, or this run's price was
// quarantined. Flags are recomputed every run, never accumulated.
func ClassifyWarning(price float64, hasNutrition, quarantined bool) bool {
	return price == 0 || !hasNutrition || quarantined
}

// TopTen returns the IDs of the ten cheapest products by protein price,
// skipping anything flagged or without a computed protein price.
func TopTen(products []models.Product) []string {
	ranked := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Warning || p.ProteinPrice <= 0 {
			continue
		}
		ranked = append(ranked, p)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].ProteinPrice < ranked[j].ProteinPrice
	})

	if len(ranked) > 10 {
		ranked = ranked[:10]
	}
	ids := make([]string, len(ranked))
	for i, p := range ranked {
		ids[i] = p.ID
	}
	return ids
}
