//go:build ignore

// Renders a sample weekly spending chart to spending_preview.png.
// Run with: go run generate_graph.go
package main

import (
	"fmt"
	"os"

	"github.com/KoPyae2/Life-Desk/internal/bot"
	"github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/shopspring/decimal"
)

func main() {
	totals := []models.CategoryTotal{
		{Category: "Food", Total: decimal.RequireFromString("86.40")},
		{Category: "Transport", Total: decimal.RequireFromString("42.00")},
		{Category: "Bills", Total: decimal.RequireFromString("120.00")},
		{Category: "Health", Total: decimal.RequireFromString("18.75")},
		{Category: "Entertainment", Total: decimal.RequireFromString("25.00")},
	}

	chart, err := bot.GenerateExpenseChart(totals, "Spending Jan 12 to Jan 18, 2026")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("spending_preview.png", chart, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created spending_preview.png")
}
