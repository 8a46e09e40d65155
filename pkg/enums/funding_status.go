package enums

import "fmt"

// FundingStatus describes how far an item's funding has progressed.
type FundingStatus string

const (
	FundingStatusAvailable       FundingStatus = "AVAILABLE"
	FundingStatusPartiallyFunded FundingStatus = "PARTIALLY_FUNDED"
	FundingStatusFullyFunded     FundingStatus = "FULLY_FUNDED"
)

var validFundingStatuses = []FundingStatus{
	FundingStatusAvailable,
	FundingStatusPartiallyFunded,
	FundingStatusFullyFunded,
}

// String implements fmt.Stringer.
func (s FundingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known FundingStatus.
func (s FundingStatus) IsValid() bool {
	for _, candidate := range validFundingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseFundingStatus converts raw input into a FundingStatus.
func ParseFundingStatus(value string) (FundingStatus, error) {
	for _, candidate := range validFundingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid funding status %q", value)
}
