package toyyibpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/masjid-suite/billing/internal/config"
	"github.com/masjid-suite/billing/internal/logger"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// Client is the contract this core holds with ToyyibPay: issue a bill, get
// back a bill code and a hosted payment URL. Everything else arrives via
// the callback webhook.
type Client interface {
	CreateBill(ctx context.Context, req *CreateBillRequest) (*CreateBillResponse, error)
}

type client struct {
	cfg        config.ToyyibPayConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a ToyyibPay client. Requests retry with backoff since
// the gateway's sandbox in particular is flaky under load.
func NewClient(cfg config.ToyyibPayConfig, log *logger.Logger) Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.HTTPClient.Timeout = 30 * time.Second
	retryClient.Logger = nil

	return &client{
		cfg:        cfg,
		httpClient: retryClient.StandardClient(),
		logger:     log,
	}
}

// createBillReply matches ToyyibPay's createBill response: an array with a
// single {"BillCode": "..."} object on success, or an error string.
type createBillReply []struct {
	BillCode string `json:"BillCode"`
}

func (c *client) CreateBill(ctx context.Context, req *CreateBillRequest) (*CreateBillResponse, error) {
	form := url.Values{}
	form.Set("userSecretKey", c.cfg.APIKey)
	form.Set("categoryCode", c.cfg.CategoryCode)
	form.Set("billName", req.BillName)
	form.Set("billDescription", req.BillDescription)
	form.Set("billPriceSetting", "1") // fixed price
	form.Set("billPayorInfo", "1")
	form.Set("billAmount", req.Amount)
	form.Set("billReturnUrl", c.cfg.CallbackURL)
	form.Set("billCallbackUrl", c.cfg.CallbackURL)
	form.Set("billExternalReferenceNo", req.ExternalRefNo)
	form.Set("billTo", req.CustomerName)
	form.Set("billEmail", req.CustomerEmail)
	form.Set("billPhone", req.CustomerPhone)

	if req.Split != nil {
		args, err := json.Marshal([]map[string]string{
			{"email": req.Split.MasjidAdminEmail, "amount": req.Split.MasjidAdminAmount},
			{"email": req.Split.LocalAdminEmail, "amount": req.Split.LocalAdminAmount},
		})
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode split payment arguments").
				Mark(ierr.ErrValidation)
		}
		form.Set("billSplitPayment", "1")
		form.Set("billSplitPaymentArgs", string(args))
	} else {
		form.Set("billSplitPayment", "0")
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/index.php/api/createBill"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment gateway is unreachable").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Errorw("toyyibpay createBill failed",
			"status", resp.StatusCode,
			"body", string(body))
		return nil, ierr.NewErrorf("toyyibpay createBill returned %d", resp.StatusCode).
			WithHint("Payment gateway rejected the bill").
			Mark(ierr.ErrHTTPClient)
	}

	var reply createBillReply
	if err := json.Unmarshal(body, &reply); err != nil || len(reply) == 0 || reply[0].BillCode == "" {
		c.logger.Errorw("toyyibpay createBill returned unexpected payload",
			"body", string(body))
		return nil, ierr.NewError("invalid response from toyyibpay createBill").
			WithHint("Payment gateway returned an unexpected response").
			Mark(ierr.ErrHTTPClient)
	}

	billCode := reply[0].BillCode
	return &CreateBillResponse{
		BillCode:   billCode,
		PaymentURL: fmt.Sprintf("%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), billCode),
	}, nil
}
