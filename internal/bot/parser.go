package bot

import (
	"regexp"
	"strings"

	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/shopspring/decimal"
)

// ParsedExpense represents a parsed expense from user input.
type ParsedExpense struct {
	Amount      decimal.Decimal
	Description string
	Category    string
}

// amountRegex matches amounts like "5", "5.50", "5,50".
var amountRegex = regexp.MustCompile(`^(\d+(?:[.,]\d{1,2})?)`)

// categoryRegex matches a trailing "#category" tag.
var categoryRegex = regexp.MustCompile(`(?:^|\s)#(\p{L}[\p{L}\p{N}_-]{0,31})\s*$`)

// parseAmount reads a positive amount from the start of input and returns it
// with the rest of the text. ok is false when input does not start with one.
func parseAmount(input string) (amount decimal.Decimal, rest string, ok bool) {
	match := amountRegex.FindString(input)
	if match == "" {
		return decimal.Zero, "", false
	}

	// A number glued to letters ("5kg") is not an amount.
	rest = input[len(match):]
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") && !strings.HasPrefix(rest, "\n") {
		return decimal.Zero, "", false
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(match, ",", "."))
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, "", false
	}
	return amount, strings.TrimSpace(rest), true
}

// ParseExpenseInput parses expense text like "5.50 Coffee" or
// "12 Taxi home #transport". Returns nil if the input is not an expense.
// A known category tag is normalized to its canonical spelling; an unknown
// one is kept as typed, and no tag means the default category.
func ParseExpenseInput(input string) *ParsedExpense {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	amount, rest, ok := parseAmount(input)
	if !ok {
		return nil
	}

	category := appmodels.DefaultCategory
	if m := categoryRegex.FindStringSubmatchIndex(rest); m != nil {
		category = matchCategory(rest[m[2]:m[3]])
		rest = strings.TrimSpace(rest[:m[0]])
	}

	return &ParsedExpense{
		Amount:      amount,
		Description: strings.Join(strings.Fields(rest), " "),
		Category:    category,
	}
}

// matchCategory returns the canonical category for tag, or tag itself.
func matchCategory(tag string) string {
	for _, name := range appmodels.ExpenseCategories {
		if strings.EqualFold(name, tag) {
			return name
		}
	}
	return tag
}
