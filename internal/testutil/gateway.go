package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/masjid-suite/billing/internal/gateway/toyyibpay"
)

// StubGatewayClient implements toyyibpay.Client without any network calls.
// Each CreateBill returns a deterministic bill code and records the request
// for assertions. Setting Err makes the next call fail.
type StubGatewayClient struct {
	mu       sync.Mutex
	calls    []*toyyibpay.CreateBillRequest
	sequence int

	Err error
}

// NewStubGatewayClient creates a stub payment gateway client
func NewStubGatewayClient() *StubGatewayClient {
	return &StubGatewayClient{}
}

func (c *StubGatewayClient) CreateBill(ctx context.Context, req *toyyibpay.CreateBillRequest) (*toyyibpay.CreateBillResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}

	c.sequence++
	c.calls = append(c.calls, req)
	billCode := fmt.Sprintf("stub-bill-%03d", c.sequence)
	return &toyyibpay.CreateBillResponse{
		BillCode:   billCode,
		PaymentURL: "https://dev.toyyibpay.com/" + billCode,
	}, nil
}

// Calls returns the recorded bill creation requests
func (c *StubGatewayClient) Calls() []*toyyibpay.CreateBillRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*toyyibpay.CreateBillRequest(nil), c.calls...)
}

// Reset clears recorded calls and the injected error
func (c *StubGatewayClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
	c.sequence = 0
	c.Err = nil
}
