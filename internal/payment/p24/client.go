// Package p24 talks to the Przelewy24 REST API.
package p24

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	CurrencyPLN = "PLN"
	CountryPL   = "PL"
	LanguagePL  = "pl"

	StatusSuccess = "success"
)

var ErrNoToken = errors.New("p24: register response has no token")

type Credentials struct {
	MerchantID int
	PosID      int
	CRC        string
	APIKey     string
}

type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

func NewClient(baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) Credentials() Credentials { return c.creds }

type RegisterRequest struct {
	MerchantID  int    `json:"merchantId"`
	PosID       int    `json:"posId"`
	SessionID   string `json:"sessionId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Client      string `json:"client,omitempty"`
	Country     string `json:"country"`
	Language    string `json:"language"`
	URLReturn   string `json:"urlReturn"`
	URLStatus   string `json:"urlStatus"`
	Sign        string `json:"sign"`
	Encoding    string `json:"encoding"`
}

type VerifyRequest struct {
	MerchantID int    `json:"merchantId"`
	PosID      int    `json:"posId"`
	SessionID  string `json:"sessionId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	OrderID    int64  `json:"orderId"`
	Sign       string `json:"sign"`
}

type registerResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
	ResponseCode int `json:"responseCode"`
}

type verifyResponse struct {
	Data struct {
		Status string `json:"status"`
	} `json:"data"`
	ResponseCode int `json:"responseCode"`
}

// Register fills in merchant fields and the signature, registers the transaction and returns its token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	req.MerchantID = c.creds.MerchantID
	req.PosID = c.creds.PosID
	if req.Encoding == "" {
		req.Encoding = "UTF-8"
	}
	req.Sign = RegisterSign(req.SessionID, req.MerchantID, req.Amount, req.Currency, c.creds.CRC)

	var out registerResponse
	if err := c.call(ctx, http.MethodPost, "/transaction/register", req, &out); err != nil {
		return "", err
	}
	if out.Data.Token == "" {
		return "", ErrNoToken
	}
	return out.Data.Token, nil
}

// Verify confirms a notified transaction. It reports false when the gateway does not answer with success.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (bool, error) {
	req.MerchantID = c.creds.MerchantID
	req.PosID = c.creds.PosID
	req.Sign = TransactionSign(req.SessionID, req.OrderID, req.Amount, req.Currency, c.creds.CRC)

	var out verifyResponse
	if err := c.call(ctx, http.MethodPut, "/transaction/verify", req, &out); err != nil {
		return false, err
	}
	return out.Data.Status == StatusSuccess, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("p24: marshal %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("p24: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(fmt.Sprint(c.creds.PosID), c.creds.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("p24: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("p24: read %s response: %w", path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Path: path, Code: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("p24: decode %s response: %w", path, err)
	}
	return nil
}

type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("p24: %s returned status %d", e.Path, e.Code)
}
