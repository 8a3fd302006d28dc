package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/knjigarna/internal/imaging"
	"github.com/erazemk/knjigarna/internal/model"
)

// Options configures the API router.
type Options struct {
	JWTSecret        string
	TokenTTL         time.Duration
	RestockThreshold int
	Cover            imaging.Options
}

// NewRouter creates the API router with all endpoints registered and the
// request ID, recovery and logging middleware applied.
func NewRouter(db *sql.DB, opts Options) http.Handler {
	if opts.RestockThreshold <= 0 {
		opts.RestockThreshold = model.DefaultRestockThreshold
	}

	mux := http.NewServeMux()

	healthHandler := &HealthHandler{DB: db}
	authHandler := &AuthHandler{DB: db, JWTSecret: opts.JWTSecret, TokenTTL: opts.TokenTTL}
	usersHandler := &UsersHandler{DB: db}
	booksHandler := &BooksHandler{DB: db, Cover: opts.Cover}
	ledgerHandler := &LedgerHandler{DB: db}
	sectionsHandler := &SectionsHandler{DB: db, RestockThreshold: opts.RestockThreshold}
	reportsHandler := &ReportsHandler{DB: db}

	authMW := AuthMiddleware(opts.JWTSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireEmployee := RequireRole(model.RoleEmployee)

	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	employee := func(h http.HandlerFunc) http.Handler { return authMW(requireEmployee(h)) }

	// Public.
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/profile", authMW(http.HandlerFunc(authHandler.Profile)))
	mux.Handle("PUT /api/auth/profile", authMW(http.HandlerFunc(authHandler.UpdateProfile)))

	// Users: admin, except reading your own record.
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("GET /api/users/{id}", employee(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Books.
	mux.Handle("GET /api/books", employee(booksHandler.List))
	mux.Handle("POST /api/books", employee(booksHandler.Create))
	mux.Handle("GET /api/books/{id}", employee(booksHandler.Get))
	mux.Handle("PUT /api/books/{id}", employee(booksHandler.Update))
	mux.Handle("POST /api/books/{id}/sell", employee(booksHandler.Sell))
	mux.Handle("POST /api/books/{id}/move", employee(booksHandler.Move))
	mux.Handle("GET /api/books/{id}/history", employee(booksHandler.History))
	mux.Handle("PUT /api/books/{id}/image", employee(booksHandler.UploadImage))
	mux.Handle("GET /api/books/{id}/image", employee(booksHandler.GetImage))

	// Ledger.
	mux.Handle("GET /api/ledger", employee(ledgerHandler.List))

	// Sections.
	mux.Handle("GET /api/sections", employee(sectionsHandler.List))
	mux.Handle("POST /api/sections", admin(sectionsHandler.Create))
	mux.Handle("GET /api/sections/stats", admin(sectionsHandler.Stats))
	mux.Handle("GET /api/sections/recommendations", admin(sectionsHandler.Recommendations))
	mux.Handle("GET /api/sections/{code}/books", employee(sectionsHandler.Books))
	mux.Handle("DELETE /api/sections/{code}", admin(sectionsHandler.Delete))

	// Reports.
	mux.Handle("GET /api/reports/inventory", admin(reportsHandler.Inventory))
	mux.Handle("GET /api/reports/sales", admin(reportsHandler.Sales))
	mux.Handle("GET /api/reports/performance", admin(reportsHandler.Performance))
	mux.Handle("GET /api/reports/categories", employee(reportsHandler.Categories))

	return RequestID(Recovery(LoggingMiddleware(mux)))
}
