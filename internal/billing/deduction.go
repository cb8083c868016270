package billing

import (
	"fmt"
	"strconv"
	"strings"
)

// DeductionDescription builds the canonical human-readable line for a
// bank-transfer membership deduction. The manually imported ledger describes
// the same event in free text, and the reconciler correlates the two through
// the classroom-suffix token this string embeds. Both sides must keep
// producing the exact same token, so the format lives here and nowhere else.
func DeductionDescription(billingMonth, classroomSuffix string, totalCount int, unitPrice int64) string {
	return fmt.Sprintf("%s口座振替会費%s %d名×%d円",
		monthLabel(billingMonth), DuplicateMatchToken(classroomSuffix), totalCount, unitPrice)
}

// DeductionAmount is the negative deduction amount for a bank-transfer record.
func DeductionAmount(totalCount int, unitPrice int64) int64 {
	return -(int64(totalCount) * unitPrice)
}

// DuplicateMatchToken is the substring both the synthetic description and the
// manual-line scan use: the parenthesized classroom suffix.
func DuplicateMatchToken(classroomSuffix string) string {
	return "(" + classroomSuffix + ")"
}

// monthLabel renders "YYYY-MM" as a Japanese month label, e.g. "11月分".
// A month that does not parse falls back to the raw string.
func monthLabel(billingMonth string) string {
	parts := strings.SplitN(billingMonth, "-", 2)
	if len(parts) != 2 {
		return billingMonth
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return billingMonth
	}
	return fmt.Sprintf("%d月分", m)
}
