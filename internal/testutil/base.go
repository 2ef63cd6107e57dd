package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/masjid-suite/billing/internal/cache"
	"github.com/masjid-suite/billing/internal/config"
	"github.com/masjid-suite/billing/internal/logger"
	"github.com/masjid-suite/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores bundles the in-memory repositories handed to services under test
type Stores struct {
	SubscriptionRepo *InMemorySubscriptionStore
	PaymentRepo      *InMemoryPaymentStore
	LocalAdminRepo   *InMemoryLocalAdminStore
	AssignmentRepo   *InMemoryAssignmentStore
}

// NewStores creates a fresh set of in-memory stores
func NewStores() *Stores {
	return &Stores{
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		PaymentRepo:      NewInMemoryPaymentStore(),
		LocalAdminRepo:   NewInMemoryLocalAdminStore(),
		AssignmentRepo:   NewInMemoryAssignmentStore(),
	}
}

// Clear clears all stores
func (s *Stores) Clear() {
	s.SubscriptionRepo.Clear()
	s.PaymentRepo.Clear()
	s.LocalAdminRepo.Clear()
	s.AssignmentRepo.Clear()
}

// MockClock is a settable clock for deterministic time-driven tests
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a clock frozen at the given instant
func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

// Now returns the frozen instant
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// SetTime moves the clock to the given instant
func (c *MockClock) SetTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// BaseServiceTestSuite provides the shared fixture for service tests: fresh
// in-memory stores, a frozen clock, a stub gateway and a request context
// carrying a super admin identity.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	cfg     *config.Configuration
	log     *logger.Logger
	stores  *Stores
	clock   *MockClock
	gateway *StubGatewayClient
}

// SetupTest initializes the test environment
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST))
	s.ctx = context.WithValue(s.ctx, types.CtxUserID, "user_test")
	s.ctx = context.WithValue(s.ctx, types.CtxUserRole, types.UserRoleSuperAdmin)

	s.cfg = config.GetDefaultConfig()
	s.log = logger.GetLogger()
	s.stores = NewStores()
	s.clock = NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.gateway = NewStubGatewayClient()

	cache.InitializeInMemoryCache()
}

// TearDownTest cleans up after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.Clear()
	s.gateway.Reset()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.log
}

// GetStores returns the in-memory stores
func (s *BaseServiceTestSuite) GetStores() *Stores {
	return s.stores
}

// GetClock returns the mock clock
func (s *BaseServiceTestSuite) GetClock() *MockClock {
	return s.clock
}

// GetGateway returns the stub gateway client
func (s *BaseServiceTestSuite) GetGateway() *StubGatewayClient {
	return s.gateway
}

// ClearStores resets all in-memory stores
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.Clear()
}
