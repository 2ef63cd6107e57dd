package gorm

import (
	"context"

	"github.com/masjid-suite/billing/internal/config"
	"github.com/masjid-suite/billing/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// Client wraps the gorm DB handle and owns schema migration
type Client struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewClient opens the postgres connection and runs migrations
func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to postgres").
			Mark(ierr.ErrDatabase)
	}

	client := &Client{db: db, log: log}
	if err := client.migrate(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) migrate() error {
	if err := c.db.AutoMigrate(
		&subscriptionRow{},
		&paymentTransactionRow{},
		&localAdminRow{},
		&assignmentRow{},
	); err != nil {
		return ierr.WithError(err).
			WithHint("Schema migration failed").
			Mark(ierr.ErrDatabase)
	}

	// One non-cancelled subscription per masjid. Partial indexes are not
	// expressible through struct tags, so it is created here.
	if err := c.db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_active_masjid
		 ON subscriptions (masjid_id) WHERE status != 'cancelled'`,
	).Error; err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription uniqueness index").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// DB returns the handle scoped to the given context
func (c *Client) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}
