package core

// Totals is the aggregate of a record set.
type Totals struct {
	Income  Amount `json:"income"`
	Expense Amount `json:"expense"`
	Balance Amount `json:"balance"`
}

// CategoryTotal is an amount aggregated by category name.
type CategoryTotal struct {
	Category string `json:"category"`
	Amount   Amount `json:"amount"`
}

// ComputeTotals sums income and expense amounts. Balance is income minus
// expense. An empty record set yields all-zero totals.
func ComputeTotals(records []Transaction) Totals {
	var t Totals
	for _, r := range records {
		switch r.Type {
		case Income:
			t.Income = t.Income.Add(r.Amount)
		case Expense:
			t.Expense = t.Expense.Add(r.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// ByCategory sums amounts of the given type per category, in first-seen order.
func ByCategory(records []Transaction, typ TransactionType) []CategoryTotal {
	index := map[string]int{}
	var out []CategoryTotal
	for _, r := range records {
		if r.Type != typ {
			continue
		}
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, CategoryTotal{Category: r.Category})
		}
		out[i].Amount = out[i].Amount.Add(r.Amount)
	}
	return out
}
