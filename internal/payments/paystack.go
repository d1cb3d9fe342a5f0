package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	logrus "github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.paystack.co"

// PaystackGateway talks to the Paystack REST API. Amounts cross the wire in
// kobo (minor units), so every amount is multiplied by 100 on the way out
// and divided on the way in.
type PaystackGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystackGateway(secretKey string) *PaystackGateway {
	return &PaystackGateway{
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *PaystackGateway) do(method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrChargeNotFound
	}
	if resp.StatusCode >= 400 {
		logrus.WithFields(logrus.Fields{"status": resp.StatusCode, "path": path}).Warn("gateway request rejected")
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}

func (g *PaystackGateway) InitializeCharge(amount float64, email, reference string, metadata map[string]string) (string, error) {
	var out struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
		} `json:"data"`
	}
	payload := map[string]interface{}{
		"amount":    int64(amount * 100),
		"email":     email,
		"reference": reference,
		"metadata":  metadata,
	}
	if err := g.do(http.MethodPost, "/transaction/initialize", payload, &out); err != nil {
		return "", err
	}
	if !out.Status {
		return "", fmt.Errorf("gateway refused charge initialization for %s", reference)
	}
	return out.Data.AuthorizationURL, nil
}

func (g *PaystackGateway) VerifyCharge(reference string) (*ChargeResult, error) {
	var out struct {
		Status bool `json:"status"`
		Data   struct {
			Reference string            `json:"reference"`
			Status    string            `json:"status"`
			Amount    int64             `json:"amount"`
			Metadata  map[string]string `json:"metadata"`
		} `json:"data"`
	}
	if err := g.do(http.MethodGet, "/transaction/verify/"+reference, nil, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, ErrChargeNotFound
	}
	return &ChargeResult{
		Reference: out.Data.Reference,
		Status:    out.Data.Status,
		Amount:    float64(out.Data.Amount) / 100,
		Metadata:  out.Data.Metadata,
	}, nil
}

func (g *PaystackGateway) Disburse(amount float64, bankCode, accountNumber, narration string) (*TransferResult, error) {
	// Transfers need a recipient handle first, then the transfer itself.
	var recipient struct {
		Status bool `json:"status"`
		Data   struct {
			RecipientCode string `json:"recipient_code"`
		} `json:"data"`
	}
	err := g.do(http.MethodPost, "/transferrecipient", map[string]interface{}{
		"type":           "nuban",
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}, &recipient)
	if err != nil {
		return nil, err
	}
	if !recipient.Status {
		return nil, fmt.Errorf("gateway refused transfer recipient for account %s", accountNumber)
	}

	var transfer struct {
		Status bool `json:"status"`
		Data   struct {
			TransferCode string `json:"transfer_code"`
			Status       string `json:"status"`
		} `json:"data"`
	}
	err = g.do(http.MethodPost, "/transfer", map[string]interface{}{
		"source":    "balance",
		"amount":    int64(amount * 100),
		"recipient": recipient.Data.RecipientCode,
		"reason":    narration,
	}, &transfer)
	if err != nil {
		return nil, err
	}
	if !transfer.Status {
		return &TransferResult{Success: false}, nil
	}
	return &TransferResult{Success: true, TransferReference: transfer.Data.TransferCode}, nil
}

func (g *PaystackGateway) ListBanks() ([]Bank, error) {
	var out struct {
		Status bool   `json:"status"`
		Data   []Bank `json:"data"`
	}
	if err := g.do(http.MethodGet, "/bank", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
