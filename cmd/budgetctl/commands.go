package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/google/subcommands"

	"budget/internal/core"
	"budget/internal/ledger"
)

// app is the state shared by every subcommand.
type app struct {
	user     string
	out      io.Writer
	currency string
	open     func(ctx context.Context) (*ledger.Service, func() error, error)
}

func (a *app) commands() []subcommands.Command {
	return []subcommands.Command{
		&addCmd{app: a},
		&listCmd{app: a},
		&rmCmd{app: a},
		&totalsCmd{app: a},
	}
}

func (a *app) format(amount core.Amount) string {
	return amount.Display(a.currency)
}

// run opens the ledger, hands it to fn and maps the outcome to an exit status.
func (a *app) run(ctx context.Context, fn func(*ledger.Service) error) subcommands.ExitStatus {
	svc, cleanup, err := a.open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer func() { _ = cleanup() }()

	if err := fn(svc); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type addCmd struct {
	*app
	title    string
	amount   string
	category string
	typ      string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record an income or expense" }
func (*addCmd) Usage() string {
	return `budgetctl [-user <id>] add -title <title> -amount <amount> [-category <category>] [-type income|expense]

  Adds a transaction to the user's ledger and prints its id.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.title, "title", "", "Title of the transaction.")
	f.StringVar(&c.amount, "amount", "", "Non-negative amount, e.g. 12.50 or 12,50.")
	f.StringVar(&c.category, "category", "", "Optional category.")
	f.StringVar(&c.typ, "type", string(core.Expense), "income or expense.")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(svc *ledger.Service) error {
		tx, err := svc.Add(ctx, c.user, core.TransactionInput{
			Title:    c.title,
			Amount:   c.amount,
			Category: c.category,
			Type:     c.typ,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s\t%s\t%s\t%s\n", tx.ID, tx.Type, c.format(tx.Amount), tx.Title)
		return nil
	})
}

type listCmd struct {
	*app
	search string
	typ    string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list transactions, most recent first" }
func (*listCmd) Usage() string {
	return `budgetctl [-user <id>] list [-q <text>] [-type all|income|expense]

  Lists the user's transactions. -q matches title or category,
  case-insensitively.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.search, "q", "", "Search text matched against title and category.")
	f.StringVar(&c.typ, "type", string(core.FilterAll), "all, income or expense.")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(svc *ledger.Service) error {
		records, err := svc.ListByUser(ctx, c.user)
		if err != nil {
			return err
		}
		slices.Reverse(records)

		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tTITLE")
		for _, tx := range core.Filter(records, c.search, core.ParseTypeFilter(c.typ)) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				tx.ID, tx.CreatedAt.Format("2006-01-02"), tx.Type, c.format(tx.Amount), tx.Category, tx.Title)
		}
		return w.Flush()
	})
}

type rmCmd struct {
	*app
}

func (*rmCmd) Name() string           { return "rm" }
func (*rmCmd) Synopsis() string       { return "delete transactions by id" }
func (*rmCmd) SetFlags(*flag.FlagSet) {}
func (*rmCmd) Usage() string {
	return `budgetctl [-user <id>] rm <id>...

  Deletes the given transactions. Unknown ids are ignored.
`
}

func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	return c.run(ctx, func(svc *ledger.Service) error {
		for _, id := range f.Args() {
			if err := svc.Remove(ctx, c.user, id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted %s\n", id)
		}
		return nil
	})
}

type totalsCmd struct {
	*app
}

func (*totalsCmd) Name() string           { return "totals" }
func (*totalsCmd) Synopsis() string       { return "print income, expense and balance" }
func (*totalsCmd) SetFlags(*flag.FlagSet) {}
func (*totalsCmd) Usage() string {
	return `budgetctl [-user <id>] totals
`
}

func (c *totalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(svc *ledger.Service) error {
		records, err := svc.ListByUser(ctx, c.user)
		if err != nil {
			return err
		}
		t := core.ComputeTotals(records)
		fmt.Fprintf(c.out, "income\t%s\nexpense\t%s\nbalance\t%s\n",
			c.format(t.Income), c.format(t.Expense), c.format(t.Balance))
		return nil
	})
}
