package probe

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/calder-dev/stackstatus/internal/config"
)

// Catalog queries returning the number of user-visible base tables.
// System relations are excluded so an empty dev database reads as zero.
const (
	postgresCatalogQuery = `SELECT count(*) FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		AND table_type = 'BASE TABLE'`
	sqliteCatalogQuery = `SELECT count(*) FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
)

// CatalogProbe counts user-visible tables in the configured database.
// A connection or authentication failure fails the probe; an empty
// catalog is Ok with count zero.
type CatalogProbe struct {
	db config.DatabaseConfig
}

// NewCatalogProbe creates a catalog probe for the given database config.
func NewCatalogProbe(db config.DatabaseConfig) *CatalogProbe {
	return &CatalogProbe{db: db}
}

func (p *CatalogProbe) Run(ctx context.Context) Result {
	start := time.Now()

	driver, query := "pgx", postgresCatalogQuery
	if p.db.Driver == "sqlite" {
		driver, query = "sqlite", sqliteCatalogQuery
	}

	db, err := sql.Open(driver, p.db.DSN)
	if err != nil {
		return failed(KindCatalog, start, fmt.Sprintf("opening %s: %v", p.db.Driver, err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, p.db.Timeout.Duration)
	defer cancel()

	var count int
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return failed(KindCatalog, start, fmt.Sprintf("querying %s catalog: %v", p.db.Driver, err))
	}

	return Result{Kind: KindCatalog, Count: count, CheckedAt: start}
}
