// Package warehouse reads validation tags from the analytics warehouse.
//
// The independent validation pass tags measured impacts per targeting entity
// and lands its output in Snowflake. This package only reads those tags; the
// free-text-to-tier mapping happens in internal/validation at the boundary.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // Snowflake driver

	"github.com/adpulse/ppc-insights/internal/config"
)

// Client provides access to the validation warehouse.
type Client struct {
	config config.WarehouseConfig
	db     *sql.DB
}

// NewClient creates a new warehouse client.
func NewClient(cfg config.WarehouseConfig) (*Client, error) {
	// DSN format: user:password@account/database/schema?warehouse=xxx
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Account,
		cfg.Database,
		cfg.Schema,
	)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Client{config: cfg, db: db}, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// GetTargetValidations returns the latest validation tag per targeting
// entity for one client.
func (c *Client) GetTargetValidations(ctx context.Context, clientID string) ([]TargetValidation, error) {
	query := `
		SELECT CLIENT_ID, TARGET_TEXT, VALIDATION_TAG, VALIDATED_AT
		FROM TARGET_VALIDATIONS
		WHERE CLIENT_ID = ?
		QUALIFY ROW_NUMBER() OVER (PARTITION BY TARGET_TEXT ORDER BY VALIDATED_AT DESC) = 1
	`

	rows, err := c.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("query target validations: %w", err)
	}
	defer rows.Close()

	var out []TargetValidation
	for rows.Next() {
		var v TargetValidation
		if err := rows.Scan(&v.ClientID, &v.TargetText, &v.Tag, &v.ValidatedAt); err != nil {
			return nil, fmt.Errorf("scan target validation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetValidatedClientIDs returns the distinct client IDs present in the
// validation table, so the collector knows which accounts to refresh.
func (c *Client) GetValidatedClientIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT CLIENT_ID FROM TARGET_VALIDATIONS`)
	if err != nil {
		return nil, fmt.Errorf("query client ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan client id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
