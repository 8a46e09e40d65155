package funding

import (
	"testing"

	"github.com/google/uuid"

	"github.com/wishwell/wishwell-backend/pkg/db/models"
	"github.com/wishwell/wishwell-backend/pkg/enums"
	"github.com/wishwell/wishwell-backend/pkg/money"
)

func rowsWithAmounts(amounts ...int64) []models.Contribution {
	rows := make([]models.Contribution, 0, len(amounts))
	for _, amount := range amounts {
		rows = append(rows, models.Contribution{
			ID:            uuid.New(),
			ItemID:        uuid.New(),
			ContributorID: uuid.New(),
			AmountCents:   amount,
		})
	}
	return rows
}

func TestComputeAggregateStatusMapping(t *testing.T) {
	price := money.Amount(10000)

	cases := []struct {
		name         string
		amounts      []int64
		total        money.Amount
		contributors int
		status       enums.FundingStatus
	}{
		{name: "no rows", amounts: nil, total: 0, contributors: 0, status: enums.FundingStatusAvailable},
		{name: "partial", amounts: []int64{2500}, total: 2500, contributors: 1, status: enums.FundingStatusPartiallyFunded},
		{name: "several partials", amounts: []int64{2500, 2500}, total: 5000, contributors: 2, status: enums.FundingStatusPartiallyFunded},
		{name: "exactly funded", amounts: []int64{6000, 4000}, total: 10000, contributors: 2, status: enums.FundingStatusFullyFunded},
		{name: "zero rows ignored", amounts: []int64{0, 5000}, total: 5000, contributors: 1, status: enums.FundingStatusPartiallyFunded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agg := ComputeAggregate(price, rowsWithAmounts(tc.amounts...))
			if agg.TotalFunded != tc.total {
				t.Fatalf("expected total %d, got %d", tc.total, agg.TotalFunded)
			}
			if agg.ContributorCount != tc.contributors {
				t.Fatalf("expected %d contributors, got %d", tc.contributors, agg.ContributorCount)
			}
			if agg.Status != tc.status {
				t.Fatalf("expected status %s, got %s", tc.status, agg.Status)
			}
		})
	}
}

func TestComputeAggregateIsIdempotent(t *testing.T) {
	price := money.Amount(5000)
	rows := rowsWithAmounts(1000, 2000)

	first := ComputeAggregate(price, rows)
	second := ComputeAggregate(price, rows)
	if first != second {
		t.Fatalf("expected identical aggregates, got %+v and %+v", first, second)
	}
	if rows[0].AmountCents != 1000 || rows[1].AmountCents != 2000 {
		t.Fatalf("aggregate must not mutate its input rows")
	}
}
