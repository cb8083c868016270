package billing

import (
	"fmt"
	"sort"
	"strings"
)

// AssignNumbers maps each store code to its invoice number for a billing
// month. Numbers are the 1-based rank of the store code in the
// lexicographically sorted set, so the result depends only on the set itself,
// never on insertion order or on whether one store or the whole month is
// being numbered.
func AssignNumbers(billingMonth string, storeCodes []string) map[string]string {
	uniq := make(map[string]struct{}, len(storeCodes))
	for _, code := range storeCodes {
		uniq[code] = struct{}{}
	}

	sorted := make([]string, 0, len(uniq))
	for code := range uniq {
		sorted = append(sorted, code)
	}
	sort.Strings(sorted)

	numbers := make(map[string]string, len(sorted))
	for i, code := range sorted {
		numbers[code] = InvoiceNumber(billingMonth, i+1)
	}
	return numbers
}

// InvoiceNumber formats one number from the month and a 1-based rank.
func InvoiceNumber(billingMonth string, rank int) string {
	return fmt.Sprintf("%s-%04d", strings.ReplaceAll(billingMonth, "-", ""), rank)
}
