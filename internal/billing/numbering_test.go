package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignNumbers_SortedRank(t *testing.T) {
	numbers := AssignNumbers("2025-11", []string{"S300", "S100", "S200"})

	assert.Equal(t, "202511-0001", numbers["S100"])
	assert.Equal(t, "202511-0002", numbers["S200"])
	assert.Equal(t, "202511-0003", numbers["S300"])
}

func TestAssignNumbers_InsertionOrderIrrelevant(t *testing.T) {
	a := AssignNumbers("2025-11", []string{"S100", "S200", "S300"})
	b := AssignNumbers("2025-11", []string{"S300", "S100", "S200"})
	assert.Equal(t, a, b)
}

func TestAssignNumbers_DuplicatesCollapse(t *testing.T) {
	numbers := AssignNumbers("2025-11", []string{"S100", "S100", "S200"})
	assert.Len(t, numbers, 2)
	assert.Equal(t, "202511-0001", numbers["S100"])
	assert.Equal(t, "202511-0002", numbers["S200"])
}

func TestAssignNumbers_SingleStoreMatchesBatchRank(t *testing.T) {
	// The number is a function of the store-code set, so numbering one store
	// against the full set must agree with a whole-month run.
	full := AssignNumbers("2025-11", []string{"S100", "S200", "S300"})
	again := AssignNumbers("2025-11", []string{"S200", "S300", "S100"})
	assert.Equal(t, full["S200"], again["S200"])
	assert.Equal(t, "202511-0002", full["S200"])
}

func TestInvoiceNumber_Format(t *testing.T) {
	assert.Equal(t, "202501-0007", InvoiceNumber("2025-01", 7))
	assert.Equal(t, "202512-1000", InvoiceNumber("2025-12", 1000))
}
