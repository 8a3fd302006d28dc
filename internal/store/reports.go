package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/erazemk/knjigarna/internal/model"
)

// UnassignedLocation is the key used in breakdowns for books with no location.
const UnassignedLocation = "unassigned"

func whereCreatedBetween(sb squirrel.SelectBuilder, column string, from, to time.Time) squirrel.SelectBuilder {
	if !from.IsZero() {
		sb = sb.Where(squirrel.GtOrEq{column: from.UTC()})
	}
	if !to.IsZero() {
		sb = sb.Where(squirrel.LtOrEq{column: to.UTC()})
	}
	return sb
}

// AggregateByLocation returns, for every known location, the number of
// available books there and the number of books ever sold from there.
// Known locations are the section catalog, current book locations and
// locations recorded on sales.
func AggregateByLocation(ctx context.Context, db *sql.DB) (map[string]model.LocationCounts, error) {
	counts := map[string]model.LocationCounts{}

	rows, err := db.QueryContext(ctx, `SELECT code FROM sections`)
	if err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		counts[code] = model.LocationCounts{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}

	err = queryCounts(ctx, db,
		`SELECT location, SUM(CASE WHEN status = 'available' THEN 1 ELSE 0 END)
		 FROM books WHERE location IS NOT NULL GROUP BY location`,
		func(loc string, n int) {
			c := counts[loc]
			c.Available = n
			counts[loc] = c
		})
	if err != nil {
		return nil, fmt.Errorf("counting available books: %w", err)
	}

	err = queryCounts(ctx, db,
		`SELECT from_location, COUNT(*)
		 FROM ledger_entries WHERE kind = 'sale' AND from_location IS NOT NULL GROUP BY from_location`,
		func(loc string, n int) {
			c := counts[loc]
			c.Sold = n
			counts[loc] = c
		})
	if err != nil {
		return nil, fmt.Errorf("counting sales: %w", err)
	}

	for loc, c := range counts {
		c.Total = c.Available + c.Sold
		counts[loc] = c
	}
	return counts, nil
}

func queryCounts(ctx context.Context, db *sql.DB, query string, fn func(key string, n int)) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		fn(key, n)
	}
	return rows.Err()
}

// RestockRecommendations returns locations with fewer than threshold
// available books, sorted by location.
func RestockRecommendations(ctx context.Context, db *sql.DB, threshold int) ([]model.RestockRecommendation, error) {
	if threshold <= 0 {
		return nil, model.NewValidationError("threshold", "must be positive")
	}

	counts, err := AggregateByLocation(ctx, db)
	if err != nil {
		return nil, err
	}

	var low []string
	for loc, c := range counts {
		if c.Available < threshold {
			low = append(low, loc)
		}
	}
	sort.Strings(low)

	recs := []model.RestockRecommendation{}
	if len(low) == 0 {
		return recs, nil
	}

	top, err := topCategoriesByLocation(ctx, db, 3)
	if err != nil {
		return nil, err
	}

	for _, loc := range low {
		available := counts[loc].Available
		severity := model.SeverityLow
		if available < model.CriticalStockLevel {
			severity = model.SeverityCritical
		}
		cats := top[loc]
		if cats == nil {
			cats = []string{}
		}
		recs = append(recs, model.RestockRecommendation{
			Location:       loc,
			AvailableCount: available,
			Severity:       severity,
			TopCategories:  cats,
		})
	}
	return recs, nil
}

// topCategoriesByLocation returns up to n of the most common categories
// among books ever assigned to each location. Each book counts once per
// location; ties keep the order in which books were first assigned.
func topCategoriesByLocation(ctx context.Context, db *sql.DB, n int) (map[string][]string, error) {
	type tally struct {
		seen   map[int64]bool
		counts map[string]int
		order  []string
	}
	tallies := map[string]*tally{}

	add := func(loc string, bookID int64, category string) {
		t := tallies[loc]
		if t == nil {
			t = &tally{seen: map[int64]bool{}, counts: map[string]int{}}
			tallies[loc] = t
		}
		if t.seen[bookID] {
			return
		}
		t.seen[bookID] = true
		if category == "" {
			return
		}
		if _, ok := t.counts[category]; !ok {
			t.order = append(t.order, category)
		}
		t.counts[category]++
	}

	scan := func(query string) error {
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var loc, category string
			var bookID int64
			if err := rows.Scan(&loc, &bookID, &category); err != nil {
				return err
			}
			add(loc, bookID, category)
		}
		return rows.Err()
	}

	if err := scan(
		`SELECT le.to_location, le.book_id, b.category
		 FROM ledger_entries le JOIN books b ON b.id = le.book_id
		 WHERE le.kind IN ('addition', 'movement') AND le.to_location IS NOT NULL
		 ORDER BY le.created_at, le.id`,
	); err != nil {
		return nil, fmt.Errorf("scanning assignments: %w", err)
	}
	if err := scan(
		`SELECT location, id, category FROM books WHERE location IS NOT NULL ORDER BY id`,
	); err != nil {
		return nil, fmt.Errorf("scanning current locations: %w", err)
	}

	result := make(map[string][]string, len(tallies))
	for loc, t := range tallies {
		cats := append([]string(nil), t.order...)
		sort.SliceStable(cats, func(i, j int) bool {
			return t.counts[cats[i]] > t.counts[cats[j]]
		})
		if len(cats) > n {
			cats = cats[:n]
		}
		result[loc] = cats
	}
	return result, nil
}

// SalesReport lists sales between from and to, newest first. An actorID of
// zero includes all sellers.
func SalesReport(ctx context.Context, db *sql.DB, from, to time.Time, actorID int64) (*model.SalesReport, error) {
	sb := squirrel.Select(append(append([]string{}, entryColumns...),
		"b.author", "b.category", "b.description", "b.location", "b.status",
		"b.created_at", "b.updated_at", "u.email")...).
		From("ledger_entries le").
		Join("books b ON b.id = le.book_id").
		Join("users u ON u.id = le.actor_id").
		Where(squirrel.Eq{"le.kind": model.EntryKindSale})
	if actorID > 0 {
		sb = sb.Where(squirrel.Eq{"le.actor_id": actorID})
	}
	sb = whereCreatedBetween(sb, "le.created_at", from, to)

	query, args, err := sb.OrderBy("le.created_at DESC", "le.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sales: %w", err)
	}
	defer rows.Close()

	report := &model.SalesReport{
		From:        from,
		To:          to,
		Sales:       []model.SaleLine{},
		ByDay:       map[string]int{},
		GeneratedAt: now(),
	}
	for rows.Next() {
		var line model.SaleLine
		e := &line.Entry
		var fromLoc, toLoc, fromStatus, toStatus, bookLoc sql.NullString
		err := rows.Scan(&e.ID, &e.BookID, &e.ActorID, &e.Kind,
			&fromLoc, &toLoc, &fromStatus, &toStatus,
			&e.Note, &e.CreatedAt, &e.BookTitle, &e.ActorUsername,
			&line.Book.Author, &line.Book.Category, &line.Book.Description, &bookLoc,
			&line.Book.Status, &line.Book.CreatedAt, &line.Book.UpdatedAt, &line.Seller.Email)
		if err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}
		e.FromLocation = nullStringPtr(fromLoc)
		e.ToLocation = nullStringPtr(toLoc)
		e.FromStatus = nullStringPtr(fromStatus)
		e.ToStatus = nullStringPtr(toStatus)

		line.Book.ID = e.BookID
		line.Book.Title = e.BookTitle
		line.Book.Location = nullStringPtr(bookLoc)
		line.Seller.ID = e.ActorID
		line.Seller.Username = e.ActorUsername

		report.Sales = append(report.Sales, line)
		report.ByDay[e.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying sales: %w", err)
	}

	report.Total = len(report.Sales)
	return report, nil
}

// PerformanceReport counts sales, additions and movements per employee
// between from and to. Every active employee is listed; admins are not.
// Results are ordered by sales, then username.
func PerformanceReport(ctx context.Context, db *sql.DB, from, to time.Time) (*model.PerformanceReport, error) {
	byUser := map[int64]*model.EmployeePerformance{}

	employees, err := db.QueryContext(ctx,
		`SELECT id, username, email FROM users WHERE role = ? AND deleted_at IS NULL`,
		model.RoleEmployee,
	)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	for employees.Next() {
		var u model.UserRef
		if err := employees.Scan(&u.ID, &u.Username, &u.Email); err != nil {
			employees.Close()
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		byUser[u.ID] = &model.EmployeePerformance{User: u}
	}
	employees.Close()
	if err := employees.Err(); err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}

	sb := squirrel.Select("le.actor_id", "u.username", "u.email", "le.kind", "COUNT(*)").
		From("ledger_entries le").
		Join("users u ON u.id = le.actor_id").
		Where(squirrel.Eq{
			"u.role":  model.RoleEmployee,
			"le.kind": []string{model.EntryKindSale, model.EntryKindAddition, model.EntryKindMovement},
		})
	sb = whereCreatedBetween(sb, "le.created_at", from, to)
	query, args, err := sb.GroupBy("le.actor_id", "u.username", "u.email", "le.kind").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting activity: %w", err)
	}
	defer rows.Close()

	report := &model.PerformanceReport{From: from, To: to, GeneratedAt: now()}
	for rows.Next() {
		var u model.UserRef
		var kind string
		var n int
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &kind, &n); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		p := byUser[u.ID]
		if p == nil {
			p = &model.EmployeePerformance{User: u}
			byUser[u.ID] = p
		}
		switch kind {
		case model.EntryKindSale:
			p.Sales += n
			report.TotalSales += n
		case model.EntryKindAddition:
			p.Additions += n
		case model.EntryKindMovement:
			p.Movements += n
		}
		p.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting activity: %w", err)
	}

	report.Employees = make([]model.EmployeePerformance, 0, len(byUser))
	for _, p := range byUser {
		report.Employees = append(report.Employees, *p)
	}
	sort.Slice(report.Employees, func(i, j int) bool {
		a, b := report.Employees[i], report.Employees[j]
		if a.Sales != b.Sales {
			return a.Sales > b.Sales
		}
		return a.User.Username < b.User.Username
	})
	return report, nil
}

// InventoryReport lists books matching the filter with counts by status,
// category and location.
func InventoryReport(ctx context.Context, db *sql.DB, f model.BookFilter) (*model.InventoryReport, error) {
	books, err := ListBooks(ctx, db, f)
	if err != nil {
		return nil, fmt.Errorf("building inventory report: %w", err)
	}

	report := &model.InventoryReport{
		Total:       len(books),
		Filters:     f,
		Books:       books,
		ByStatus:    map[string]int{},
		ByCategory:  map[string]int{},
		ByLocation:  map[string]int{},
		GeneratedAt: now(),
	}
	for _, b := range books {
		report.ByStatus[b.Status]++
		if b.Category != "" {
			report.ByCategory[b.Category]++
		}
		loc := b.LocationValue()
		if loc == "" {
			loc = UnassignedLocation
		}
		report.ByLocation[loc]++
	}
	return report, nil
}

// PopularCategories returns categories ranked by sales between from and to.
func PopularCategories(ctx context.Context, db *sql.DB, from, to time.Time, limit int) ([]model.CategorySales, error) {
	if limit <= 0 {
		limit = 10
	}

	sb := squirrel.Select("b.category", "COUNT(*) AS sales").
		From("ledger_entries le").
		Join("books b ON b.id = le.book_id").
		Where(squirrel.Eq{"le.kind": model.EntryKindSale}).
		Where(squirrel.NotEq{"b.category": ""})
	sb = whereCreatedBetween(sb, "le.created_at", from, to)
	query, args, err := sb.GroupBy("b.category").
		OrderBy("sales DESC", "b.category").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ranking categories: %w", err)
	}
	defer rows.Close()

	result := []model.CategorySales{}
	for rows.Next() {
		var cs model.CategorySales
		if err := rows.Scan(&cs.Category, &cs.Sales); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		result = append(result, cs)
	}
	return result, rows.Err()
}
