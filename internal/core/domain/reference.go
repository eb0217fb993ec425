package domain

import (
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	referencePrefix   = "ISS"
	referenceAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	referenceSuffix   = 8
)

// NewReferenceNumber builds ISS-YYYYMMDD-XXXXXXXX from the UTC date of now
func NewReferenceNumber(now time.Time) (string, error) {
	suffix, err := gonanoid.Generate(referenceAlphabet, referenceSuffix)
	if err != nil {
		return "", fmt.Errorf("generate reference suffix: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", referencePrefix, now.UTC().Format("20060102"), suffix), nil
}

// IsReferenceNumber reports whether s has the shape produced by NewReferenceNumber
func IsReferenceNumber(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] != referencePrefix {
		return false
	}
	if _, err := time.Parse("20060102", parts[1]); err != nil {
		return false
	}
	if len(parts[2]) != referenceSuffix {
		return false
	}
	for _, r := range parts[2] {
		if !strings.ContainsRune(referenceAlphabet, r) {
			return false
		}
	}
	return true
}
