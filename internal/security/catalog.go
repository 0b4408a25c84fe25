// Package security implements the message moderation pipeline: URL
// extraction, domain analysis against a threat catalog, credential
// harvesting detection, and the orchestrator that aggregates findings
// into a per-message verdict.
package security

import (
	"regexp"
	"strings"
)

// credentialPattern matches language commonly used to solicit
// credentials or payment details. Case-insensitive.
var credentialPattern = regexp.MustCompile(`(?i)(password|login|credit card|social security)`)

// defaultMaliciousDomains are domain substrings with confirmed phishing
// history. A URL containing any of them is blocked outright.
var defaultMaliciousDomains = []string{
	"fake-login.com",
	"phishing-bank.com",
	"secure-verify.net",
	"account-update.com",
	"password-reset-now.com",
}

// defaultSuspiciousKeywords are checked against URLs in order; the
// first hit wins and scanning stops.
var defaultSuspiciousKeywords = []string{
	"login",
	"verify",
	"password",
	"account",
	"bank",
}

// Catalog is the read-only threat intelligence consumed by the
// analyzers. It is immutable after construction; hot reload is done by
// building a new Catalog and swapping the reference.
type Catalog struct {
	domains    []string
	keywords   []string
	credential *regexp.Regexp
}

// NewCatalog returns a Catalog loaded with the built-in threat lists.
func NewCatalog() *Catalog {
	return NewCatalogWithTerms(defaultMaliciousDomains, defaultSuspiciousKeywords)
}

// NewCatalogWithTerms returns a Catalog with caller-supplied malicious
// domains and suspicious keywords. Used by tests and by deployments
// shipping their own intelligence feeds.
func NewCatalogWithTerms(domains, keywords []string) *Catalog {
	return &Catalog{
		domains:    append([]string(nil), domains...),
		keywords:   append([]string(nil), keywords...),
		credential: credentialPattern,
	}
}

// IsKnownMaliciousDomain reports whether s contains any catalogued
// malicious domain. Substring matching is intentional: it catches the
// domain anywhere in a URL, including subdomain and path tricks.
func (c *Catalog) IsKnownMaliciousDomain(s string) bool {
	for _, d := range c.domains {
		if strings.Contains(s, d) {
			return true
		}
	}
	return false
}

// SuspiciousKeywords returns the keyword list in match-priority order.
func (c *Catalog) SuspiciousKeywords() []string {
	return c.keywords
}

// CredentialPattern returns the compiled credential-harvesting matcher.
func (c *Catalog) CredentialPattern() *regexp.Regexp {
	return c.credential
}
