// Package sqlstore reads order history and catalog prices from SQL databases.
// SQLite (modernc.org/sqlite) and Postgres (lib/pq) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/vadiminshakov/orderband/internal/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// timestamps are stored as fixed-width UTC text so range filters compare lexically
	timeLayout = "2006-01-02T15:04:05Z"
)

// ErrUnsupportedDriver driver is neither sqlite nor postgres.
var ErrUnsupportedDriver = errors.New("unsupported driver")

// Store order source and price catalog over database/sql.
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open connects to the database and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, errors.Wrapf(ErrUnsupportedDriver, "%q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driver)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "set WAL mode")
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping %s", driver)
	}

	s := &Store{db: db, driver: driver, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	logger.Info("order store opened", zap.String("driver", driver))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "SERIAL PRIMARY KEY"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS order_lines (
			id         %s,
			account_id TEXT NOT NULL,
			product_id TEXT,
			shipped_at TEXT,
			quantity   TEXT,
			unit_price TEXT
		)`, idColumn),
		`CREATE INDEX IF NOT EXISTS idx_order_lines_account ON order_lines(account_id, shipped_at)`,

		`CREATE TABLE IF NOT EXISTS price_catalog (
			product_id TEXT PRIMARY KEY,
			unit_price TEXT NOT NULL,
			active     INTEGER NOT NULL DEFAULT 1
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "exec %q", firstLine(stmt))
		}
	}
	return nil
}

// Orders returns the account's order lines shipped in [from, to]. A zero from means no
// lower bound. Lines without a ship date are always returned so they can be counted as
// malformed; NULL or unparsable columns come back as nil fields.
func (s *Store) Orders(ctx context.Context, accountID string, from, to time.Time) ([]domain.RawOrder, error) {
	var (
		conds = []string{"account_id = " + s.placeholder(1)}
		args  = []any{accountID}
	)
	rng := "shipped_at <= " + s.placeholder(2)
	args = append(args, formatTime(to))
	if !from.IsZero() {
		rng += " AND shipped_at >= " + s.placeholder(3)
		args = append(args, formatTime(from))
	}
	conds = append(conds, "(shipped_at IS NULL OR ("+rng+"))")

	query := `SELECT account_id, product_id, shipped_at, quantity, unit_price FROM order_lines WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query order lines")
	}
	defer rows.Close()

	var out []domain.RawOrder
	for rows.Next() {
		var account string
		var product, shipped, qty, price sql.NullString
		if err := rows.Scan(&account, &product, &shipped, &qty, &price); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}

		out = append(out, domain.RawOrder{
			Timestamp: parseTime(shipped),
			AccountID: account,
			ProductID: product.String,
			Quantity:  parseDecimal(qty),
			UnitPrice: parseDecimal(price),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order lines")
	}

	return out, nil
}

// Prices returns the active catalog prices of the given products in one query.
func (s *Store) Prices(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	marks := make([]string, len(productIDs))
	args := make([]any, len(productIDs))
	for i, id := range productIDs {
		marks[i] = s.placeholder(i + 1)
		args[i] = id
	}

	query := `SELECT product_id, unit_price FROM price_catalog WHERE active = 1 AND product_id IN (` +
		strings.Join(marks, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query price catalog")
	}
	defer rows.Close()

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "scan catalog price")
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			s.logger.Warn("unparsable catalog price ignored", zap.String("product", id), zap.String("value", raw))
			continue
		}
		out[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate catalog prices")
	}

	return out, nil
}

// InsertOrders stores raw order lines in one transaction. Nil fields are written as NULL.
func (s *Store) InsertOrders(ctx context.Context, orders []domain.RawOrder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO order_lines (account_id, product_id, shipped_at, quantity, unit_price) VALUES (%s, %s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5),
	))
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for _, o := range orders {
		var shipped, qty, price sql.NullString
		if o.Timestamp != nil {
			shipped = sql.NullString{String: formatTime(*o.Timestamp), Valid: true}
		}
		if o.Quantity != nil {
			qty = sql.NullString{String: o.Quantity.String(), Valid: true}
		}
		if o.UnitPrice != nil {
			price = sql.NullString{String: o.UnitPrice.String(), Valid: true}
		}
		product := sql.NullString{String: o.ProductID, Valid: o.ProductID != ""}

		if _, err := stmt.ExecContext(ctx, o.AccountID, product, shipped, qty, price); err != nil {
			return errors.Wrap(err, "insert order line")
		}
	}

	return errors.Wrap(tx.Commit(), "commit order lines")
}

// UpsertPrice sets a product's catalog price.
func (s *Store) UpsertPrice(ctx context.Context, productID string, price decimal.Decimal, active bool) error {
	flag := 0
	if active {
		flag = 1
	}
	query := fmt.Sprintf(
		`INSERT INTO price_catalog (product_id, unit_price, active) VALUES (%s, %s, %s)
		ON CONFLICT (product_id) DO UPDATE SET unit_price = excluded.unit_price, active = excluded.active`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3),
	)
	if _, err := s.db.ExecContext(ctx, query, productID, price.String(), flag); err != nil {
		return errors.Wrapf(err, "upsert price of %s", productID)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		t, err = time.Parse(time.RFC3339, v.String)
		if err != nil {
			return nil
		}
	}
	t = t.UTC()
	return &t
}

func parseDecimal(v sql.NullString) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil
	}
	return &d
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
