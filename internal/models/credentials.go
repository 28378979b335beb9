package models

import (
	"fmt"
	"strings"

	"github.com/ipdata/ipdata/internal/constants"
)

// StorageCredentials is the credential set used for object storage.
// AccessKeyID, SecretAccessKey and Bucket must be non-empty before any
// connection or upload attempt; Region falls back to constants.DefaultRegion.
type StorageCredentials struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
}

// CredentialSource names where a resolved credential set came from.
type CredentialSource string

const (
	SourceEnvironment CredentialSource = "environment"
	SourceOverride    CredentialSource = "override"
	SourceNone        CredentialSource = "none"
)

// IsComplete reports whether the required fields are all non-empty.
// Region is deliberately not consulted: it always has a default.
func (c StorageCredentials) IsComplete() bool {
	return len(c.MissingFields()) == 0
}

// MissingFields lists the required fields that are empty, in a stable order.
func (c StorageCredentials) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "accessKeyId")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "secretAccessKey")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "bucket")
	}
	return missing
}

// EffectiveRegion returns Region, or the default region when unset.
func (c StorageCredentials) EffectiveRegion() string {
	if strings.TrimSpace(c.Region) == "" {
		return constants.DefaultRegion
	}
	return c.Region
}

// WithDefaults returns a copy with Region defaulted.
func (c StorageCredentials) WithDefaults() StorageCredentials {
	c.Region = c.EffectiveRegion()
	return c
}

// Redacted returns a copy safe to display: the secret is masked and the
// access key id keeps only its last four characters.
func (c StorageCredentials) Redacted() StorageCredentials {
	c.AccessKeyID = MaskSecret(c.AccessKeyID, 4)
	c.SecretAccessKey = MaskSecret(c.SecretAccessKey, 0)
	return c
}

// String never includes the secret access key.
func (c StorageCredentials) String() string {
	r := c.Redacted()
	return fmt.Sprintf("accessKeyId=%s secretAccessKey=%s region=%s bucket=%s",
		r.AccessKeyID, r.SecretAccessKey, c.EffectiveRegion(), c.Bucket)
}

// MaskSecret replaces all but the last `keep` characters with asterisks.
// Empty input stays empty so "unset" remains visible in diagnostics.
func MaskSecret(s string, keep int) string {
	if s == "" {
		return ""
	}
	if keep <= 0 || len(s) <= keep {
		return "********"
	}
	return strings.Repeat("*", 8) + s[len(s)-keep:]
}
