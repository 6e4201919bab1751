// Package ledger talks to the external tabular ledger the wizard
// appends transactions to. The bot only ever appends rows and reads
// the category worksheet; it never updates or deletes.
package ledger

import "context"

// Store is the ledger interface the rest of the bot consumes.
type Store interface {
	// FetchTaxonomyLines returns the raw category lines in worksheet
	// order, header excluded.
	FetchTaxonomyLines(ctx context.Context) ([]string, error)
	// AppendRow appends one row to the named worksheet.
	AppendRow(ctx context.Context, worksheet string, row []string) error
	// EnsureWorksheet creates the named worksheet with the given header
	// row when it does not exist yet. Returns true when created.
	EnsureWorksheet(ctx context.Context, worksheet string, header []string) (bool, error)
}

// TransactionsHeader is the header row of the transactions worksheet,
// in the same order AppendRow receives transaction rows.
var TransactionsHeader = []string{"Category", "Date", "Amount", "Comment"}

// CategoriesHeader is the header row of the categories worksheet.
var CategoriesHeader = []string{"Category"}

// SampleCategories seeds a freshly created categories worksheet so the
// wizard has something to offer out of the box.
var SampleCategories = []string{
	"Housing", "Housing.Rent", "Housing.Supplies", "Housing.Electricity",
	"Housing.Internet", "Housing.Cell", "Transportation", "Food",
	"Food.Groceries", "Food.Restaurants", "Health", "Health.Hair",
	"Health.Medical", "Miscellaneous", "Travel", "Travel.Food",
	"Travel.Accommodation", "Travel.Transportation", "Travel.Entertainment",
	"Travel.Miscellaneous", "Salary", "Freelance",
}
