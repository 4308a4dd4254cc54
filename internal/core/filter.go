package core

import "strings"

const (
	FilterAll     TypeFilter = "all"
	FilterIncome  TypeFilter = "income"
	FilterExpense TypeFilter = "expense"
)

// TypeFilter restricts a view to one transaction type, or none.
type TypeFilter string

// ParseTypeFilter maps user input to a TypeFilter; anything unknown is FilterAll.
func ParseTypeFilter(s string) TypeFilter {
	switch f := TypeFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterIncome, FilterExpense:
		return f
	default:
		return FilterAll
	}
}

func (f TypeFilter) matches(t TransactionType) bool {
	return f == FilterAll || f == "" || TransactionType(f) == t
}

// Filter returns the records that pass both the type filter and the search
// text. Search is a case-insensitive substring match on title or category;
// an empty search matches everything. Input order is preserved and the
// input slice is never modified.
func Filter(records []Transaction, search string, typ TypeFilter) []Transaction {
	needle := strings.ToLower(search)
	out := make([]Transaction, 0, len(records))
	for _, r := range records {
		if !typ.matches(r.Type) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.Title), needle) &&
			!strings.Contains(strings.ToLower(r.Category), needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}
