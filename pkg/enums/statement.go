package enums

import "fmt"

// StatementEntryType signs a seller statement line.
type StatementEntryType string

const (
	StatementEntryTypeCredit StatementEntryType = "credit"
	StatementEntryTypeDebit  StatementEntryType = "debit"
)

var validStatementEntryTypes = []StatementEntryType{
	StatementEntryTypeCredit,
	StatementEntryTypeDebit,
}

// String implements fmt.Stringer.
func (t StatementEntryType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known StatementEntryType.
func (t StatementEntryType) IsValid() bool {
	for _, candidate := range validStatementEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseStatementEntryType converts raw input into a StatementEntryType.
func ParseStatementEntryType(value string) (StatementEntryType, error) {
	for _, candidate := range validStatementEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid statement entry type %q", value)
}

// StatementReason names the business event behind a statement line.
// Together with the source record and entry type it forms the
// idempotency key for ledger writes.
type StatementReason string

const (
	StatementReasonOrderItemDelivery StatementReason = "order_item_delivery"
	StatementReasonOrderItemReturn   StatementReason = "order_item_return"
	StatementReasonAdjustment        StatementReason = "adjustment"
)

var validStatementReasons = []StatementReason{
	StatementReasonOrderItemDelivery,
	StatementReasonOrderItemReturn,
	StatementReasonAdjustment,
}

// String implements fmt.Stringer.
func (r StatementReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StatementReason.
func (r StatementReason) IsValid() bool {
	for _, candidate := range validStatementReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStatementReason converts raw input into a StatementReason.
func ParseStatementReason(value string) (StatementReason, error) {
	for _, candidate := range validStatementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid statement reason %q", value)
}

// SettlementStatus tracks whether a statement line has been paid out.
type SettlementStatus string

const (
	SettlementStatusPending SettlementStatus = "pending"
	SettlementStatusSettled SettlementStatus = "settled"
)

var validSettlementStatuses = []SettlementStatus{
	SettlementStatusPending,
	SettlementStatusSettled,
}

// String implements fmt.Stringer.
func (s SettlementStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SettlementStatus.
func (s SettlementStatus) IsValid() bool {
	for _, candidate := range validSettlementStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettlementStatus converts raw input into a SettlementStatus.
func ParseSettlementStatus(value string) (SettlementStatus, error) {
	for _, candidate := range validSettlementStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement status %q", value)
}
