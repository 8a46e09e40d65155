package funding

import (
	"github.com/wishwell/wishwell-backend/pkg/db/models"
	"github.com/wishwell/wishwell-backend/pkg/enums"
	"github.com/wishwell/wishwell-backend/pkg/money"
)

// Aggregate is the owner-safe funding summary for a single item.
type Aggregate struct {
	TotalFunded      money.Amount        `json:"total_funded"`
	ContributorCount int                 `json:"contributor_count"`
	Status           enums.FundingStatus `json:"status"`
}

// ComputeAggregate folds contribution rows into a funding summary.
// Zero-amount rows are skipped so a half-deleted withdrawal can never
// inflate the contributor count.
func ComputeAggregate(price money.Amount, rows []models.Contribution) Aggregate {
	total := money.Amount(0)
	contributors := 0
	for _, row := range rows {
		amount := money.Amount(row.AmountCents)
		if amount <= 0 {
			continue
		}
		total = total.Add(amount)
		contributors++
	}

	status := enums.FundingStatusAvailable
	switch {
	case total >= price && price > 0:
		status = enums.FundingStatusFullyFunded
	case total > 0:
		status = enums.FundingStatusPartiallyFunded
	}

	return Aggregate{
		TotalFunded:      total,
		ContributorCount: contributors,
		Status:           status,
	}
}
