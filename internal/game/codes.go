package game

import (
	"crypto/rand"
	"strings"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// CodeLength is the length of generated room codes
	CodeLength = 6

	minCodeInput = 4
	maxCodeInput = 10
)

// randomCode creates a 6-char alphanumeric code
func randomCode() (string, error) {
	b := make([]byte, CodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	code := make([]byte, CodeLength)
	for i := range code {
		code[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(code), nil
}

// NormalizeCode trims and upper-cases a user entered room code
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < minCodeInput || len(code) > maxCodeInput {
		return "", newError(KindValidation, "room code must be 4-10 characters")
	}
	return code, nil
}
