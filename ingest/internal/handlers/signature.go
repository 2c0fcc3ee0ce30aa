package handlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HubSpotSignatureHeader carries the v1 request signature.
const HubSpotSignatureHeader = "X-HubSpot-Signature"

// HubSpotSignature returns the v1 signature: hex SHA-256 of the app client
// secret followed by the raw body.
func HubSpotSignature(secret string, body []byte) string {
	sum := sha256.Sum256(append([]byte(secret), body...))
	return hex.EncodeToString(sum[:])
}

func validHubSpotSignature(secret string, body []byte, got string) bool {
	want := HubSpotSignature(secret, body)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(strings.TrimSpace(got)))) == 1
}
