package model

import "time"

// Restock severities.
const (
	SeverityCritical = "critical"
	SeverityLow      = "low"
)

// CriticalStockLevel is the available count below which a section is critical.
const CriticalStockLevel = 5

// DefaultRestockThreshold is the available count below which a section
// needs restocking.
const DefaultRestockThreshold = 10

// LocationCounts summarizes a section: books on the shelf now and books
// sold from it historically.
type LocationCounts struct {
	Available int `json:"available_count"`
	Sold      int `json:"sold_count"`
	Total     int `json:"total"`
}

// RestockRecommendation flags a section that is running low.
type RestockRecommendation struct {
	Location       string   `json:"location"`
	AvailableCount int      `json:"available_count"`
	Severity       string   `json:"severity"`
	TopCategories  []string `json:"top_categories"`
}

// UserRef is a small snapshot of a user embedded in reports.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// SaleLine is one sale joined with book and seller snapshots.
type SaleLine struct {
	Entry  LedgerEntry `json:"entry"`
	Book   Book        `json:"book"`
	Seller UserRef     `json:"seller"`
}

// SalesReport lists sales in a period with a per-day breakdown.
type SalesReport struct {
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Total       int            `json:"total"`
	Sales       []SaleLine     `json:"sales"`
	ByDay       map[string]int `json:"by_day"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// EmployeePerformance counts ledger activity of one user in a period.
type EmployeePerformance struct {
	User      UserRef `json:"user"`
	Sales     int     `json:"sales"`
	Additions int     `json:"additions"`
	Movements int     `json:"movements"`
	Total     int     `json:"total"`
}

// PerformanceReport ranks users by sales in a period.
type PerformanceReport struct {
	From        time.Time             `json:"from"`
	To          time.Time             `json:"to"`
	TotalSales  int                   `json:"total_sales"`
	Employees   []EmployeePerformance `json:"employees"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// InventoryReport lists books matching a filter with breakdowns.
type InventoryReport struct {
	Total       int            `json:"total"`
	Filters     BookFilter     `json:"filters"`
	Books       []Book         `json:"books"`
	ByStatus    map[string]int `json:"by_status"`
	ByCategory  map[string]int `json:"by_category"`
	ByLocation  map[string]int `json:"by_location"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// CategorySales counts sales of one category.
type CategorySales struct {
	Category string `json:"category"`
	Sales    int    `json:"sales"`
}
