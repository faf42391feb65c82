package bot

import (
	"errors"
	"fmt"
	"sort"
	"time"

	appmodels "github.com/KoPyae2/Life-Desk/internal/models"
	"github.com/go-analyze/charts"
)

// errNothingToChart is returned when every category total is zero.
var errNothingToChart = errors.New("no expenses to chart")

// GenerateExpenseChart creates a pie chart of spending by category and
// returns it as PNG bytes. Slices are ordered largest first.
func GenerateExpenseChart(totals []appmodels.CategoryTotal, title string) ([]byte, error) {
	sorted := make([]appmodels.CategoryTotal, 0, len(totals))
	for _, t := range totals {
		if t.Total.IsPositive() {
			sorted = append(sorted, t)
		}
	}
	if len(sorted) == 0 {
		return nil, errNothingToChart
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Total.GreaterThan(sorted[j].Total)
	})

	values := make([]float64, len(sorted))
	names := make([]string, len(sorted))
	for i, t := range sorted {
		values[i] = t.Total.InexactFloat64()
		names[i] = t.Category
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}

// chartFilename names the chart after its week, like "spending_2026-01-05.png".
func chartFilename(weekStart time.Time) string {
	return fmt.Sprintf("spending_%s.png", weekStart.Format("2006-01-02"))
}
