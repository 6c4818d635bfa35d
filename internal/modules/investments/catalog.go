package investments

import (
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/domain"
)

// PackageDuration is the term of every catalog package, in days
const PackageDuration = 42

var catalog = []domain.Package{
	newPackage("pkg_1", "Starter", 10000, 600, 25200),
	newPackage("pkg_2", "Bronze", 20000, 1000, 42000),
	newPackage("pkg_3", "Silver", 40000, 1700, 71400),
	newPackage("pkg_4", "Gold", 60000, 2600, 109200),
	newPackage("pkg_5", "Platinum", 100000, 4200, 176400),
	newPackage("pkg_6", "Diamond", 150000, 6000, 252000),
	newPackage("pkg_7", "Elite", 200000, 7200, 302400),
	newPackage("pkg_8", "Premium", 300000, 10000, 420000),
}

// newPackage builds a catalog entry. totalReturn is the advertised profit over
// the full term; the capital is returned on top of it at settlement.
func newPackage(id, name string, capital, daily, totalReturn int64) domain.Package {
	return domain.Package{
		ID:          id,
		Name:        name,
		Capital:     decimal.NewFromInt(capital),
		DailyProfit: decimal.NewFromInt(daily),
		Duration:    PackageDuration,
		TotalReturn: decimal.NewFromInt(totalReturn),
	}
}

// Packages returns a copy of the catalog in display order
func Packages() []domain.Package {
	out := make([]domain.Package, len(catalog))
	copy(out, catalog)
	return out
}

// FindPackage looks up a package by id
func FindPackage(id string) (domain.Package, error) {
	for _, p := range catalog {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Package{}, domain.ErrPackageNotFound
}
