package p24

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// registerSign is the signed subset of a transaction registration. Field order is part of the signature.
type registerSign struct {
	SessionID  string `json:"sessionId"`
	MerchantID int    `json:"merchantId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	CRC        string `json:"crc"`
}

// transactionSign covers notifications and verify calls.
type transactionSign struct {
	SessionID string `json:"sessionId"`
	OrderID   int64  `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	CRC       string `json:"crc"`
}

// canonicalJSON encodes v without HTML escaping and without the encoder's trailing newline.
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func sign(v any) string {
	b, err := canonicalJSON(v)
	if err != nil {
		// only strings and integers are encoded, so this cannot fail
		panic(fmt.Sprintf("p24: encode sign payload: %v", err))
	}
	sum := sha512.Sum384(b)
	return hex.EncodeToString(sum[:])
}

func RegisterSign(sessionID string, merchantID int, amount int64, currency, crc string) string {
	return sign(registerSign{SessionID: sessionID, MerchantID: merchantID, Amount: amount, Currency: currency, CRC: crc})
}

func TransactionSign(sessionID string, orderID, amount int64, currency, crc string) string {
	return sign(transactionSign{SessionID: sessionID, OrderID: orderID, Amount: amount, Currency: currency, CRC: crc})
}
