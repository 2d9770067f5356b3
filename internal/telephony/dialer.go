package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goldenspoon/voiceline/pkg/logger"
)

var (
	// ErrInvalidNumber indicates a phone number that is not E.164.
	ErrInvalidNumber = errors.New("invalid phone number")

	// ErrProviderRejected indicates the telephony provider refused the
	// call placement. It is not retried: a human must correct the input.
	ErrProviderRejected = errors.New("provider rejected call")
)

var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidNumber reports whether s satisfies the E.164 shape.
func ValidNumber(s string) bool {
	return e164.MatchString(s)
}

const defaultAPIBaseURL = "https://api.twilio.com/2010-04-01"

// Dialer places outbound calls through the Twilio Calls API. Requests are
// context-aware so shutdown can abandon a pending placement.
type Dialer struct {
	accountSID string
	authToken  string
	baseURL    string
	twimlURL   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewDialer creates a Dialer. twimlURL is where the provider fetches the
// call markup once the call is answered.
func NewDialer(accountSID, authToken, twimlURL string, log *logger.Logger) (*Dialer, error) {
	if accountSID == "" || authToken == "" {
		return nil, errors.New("twilio credentials are required")
	}

	return &Dialer{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    defaultAPIBaseURL,
		twimlURL:   twimlURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log,
	}, nil
}

type callResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Dial initiates an outbound call and returns the provider-issued call
// SID. Malformed numbers fail before the provider is contacted; provider
// rejections (unverified caller number, account problems) surface as
// ErrProviderRejected. No local state is retained.
func (d *Dialer) Dial(ctx context.Context, to, from string) (string, error) {
	if !ValidNumber(to) {
		return "", fmt.Errorf("%w: to_number %q", ErrInvalidNumber, to)
	}
	if !ValidNumber(from) {
		return "", fmt.Errorf("%w: from_number %q", ErrInvalidNumber, from)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", d.baseURL, d.accountSID)

	data := url.Values{}
	data.Set("To", to)
	data.Set("From", from)
	data.Set("Url", d.twimlURL)
	data.Set("Method", "POST")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call placement request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("%w: %s (code %d)", ErrProviderRejected, apiErr.Message, apiErr.Code)
		}
		return "", fmt.Errorf("%w: status %d", ErrProviderRejected, resp.StatusCode)
	}

	var call callResource
	if err := json.Unmarshal(body, &call); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}

	d.logger.Info("outbound call placed",
		zap.String("call_sid", call.SID),
		zap.String("status", call.Status),
		zap.String("to", to),
	)

	return call.SID, nil
}
