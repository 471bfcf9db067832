package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	shareTokenBytes           = 32
	invitationCodeBytes       = 4
	ShareTokenLength          = shareTokenBytes * 2
	InvitationCodeLength      = invitationCodeBytes * 2
	errGenerateRandomBytesFmt = "failed to generate random bytes: %w"
	errByteLengthPositiveFmt  = "byteLength must be positive"
)

func GenerateHex(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf(errByteLengthPositiveFmt)
	}

	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf(errGenerateRandomBytesFmt, err)
	}

	return hex.EncodeToString(bytes), nil
}

// GenerateShareToken returns 64 lowercase hex characters.
func GenerateShareToken() (string, error) {
	return GenerateHex(shareTokenBytes)
}

// GenerateInvitationCode returns 8 uppercase hex characters.
func GenerateInvitationCode() (string, error) {
	code, err := GenerateHex(invitationCodeBytes)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}

// Prefix is used when a token has to appear in logs.
func Prefix(token string, length int) string {
	if len(token) < length {
		return token
	}
	return token[:length] + "..."
}
