package models

// SyntheticItemPrefix marks duplicate items that exist only as computed
// deduction lines. Such ids are never deletable.
const SyntheticItemPrefix = "auto-"

// DuplicateItem is one side of a suspected double-billing pair: either the
// synthetic system-derived deduction or a manually imported expense line.
type DuplicateItem struct {
	ItemID            string `json:"item_id"` // "auto-<record id>" or expense line id
	Description       string `json:"description"`
	Amount            int64  `json:"amount"`
	Source            string `json:"source"` // SYSTEM or MANUAL
	RecommendedDelete bool   `json:"recommended_delete"`
}

// Duplicate item sources.
const (
	DuplicateSourceSystem = "SYSTEM"
	DuplicateSourceManual = "MANUAL"
)

// DuplicateGroup pairs one synthetic deduction with the manual expense lines
// that appear to describe the same charge. The synthetic item is authoritative
// and kept; matched manual lines are recommended for deletion.
type DuplicateGroup struct {
	ClassroomSuffix string          `json:"classroom_suffix"`
	Items           []DuplicateItem `json:"items"`
}
