package service

import (
	"time"

	"github.com/masjid-suite/billing/internal/cache"
	"github.com/masjid-suite/billing/internal/config"
	"github.com/masjid-suite/billing/internal/domain/localadmin"
	"github.com/masjid-suite/billing/internal/domain/payment"
	"github.com/masjid-suite/billing/internal/domain/subscription"
	"github.com/masjid-suite/billing/internal/domain/tier"
	"github.com/masjid-suite/billing/internal/gateway/toyyibpay"
	"github.com/masjid-suite/billing/internal/logger"
)

// casRetries bounds optimistic retry loops on version conflicts
const casRetries = 3

// ServiceParams bundles the dependencies every service draws from. Wire it
// once at startup (or from the test fixture) and hand the same value to all
// service constructors.
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	Catalog *tier.Catalog

	SubRepo        subscription.Repository
	PaymentRepo    payment.Repository
	LocalAdminRepo localadmin.Repository
	AssignmentRepo localadmin.AssignmentRepository

	Gateway toyyibpay.Client
	Cache   cache.Cache

	// Now is the clock used for all lifecycle timestamps; tests inject a
	// frozen clock. Nil falls back to time.Now.
	Now func() time.Time
}

func (p ServiceParams) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
