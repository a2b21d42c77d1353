package gateway

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// VerifySignature checks the HMAC-SHA256 the gateway computes over
// "intentID|paymentID" against the signature the client submitted.
func VerifySignature(intentID, paymentID, signature, secret string) bool {
	if intentID == "" || paymentID == "" || signature == "" || secret == "" {
		return false
	}
	expected := SignPayload(intentID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayload produces the hex HMAC-SHA256 of "intentID|paymentID".
func SignPayload(intentID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

const receiptAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func newReceiptID() string {
	buf := make([]byte, 12)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(receiptAlphabet))))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(fmt.Sprintf("gateway: reading entropy: %v", err))
		}
		buf[i] = receiptAlphabet[n.Int64()]
	}
	return "receipt_" + string(buf)
}
