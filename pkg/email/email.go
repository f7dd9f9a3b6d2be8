// Package email classifies email addresses as business vs. personal using a
// domain denylist. Purely lexical: no network lookups, no MX validation.
package email

import (
	"regexp"
	"strings"
)

// formatPattern requires a non-empty local part, a single @, and a dotted
// domain. Deliberately loose beyond that; deliverability is not our problem.
var formatPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// DefaultPersonalDomains lists major consumer webmail providers and known
// disposable-email services. Addresses on these domains never count as
// business email.
var DefaultPersonalDomains = []string{
	// Major providers
	"gmail.com",
	"googlemail.com",
	"outlook.com",
	"hotmail.com",
	"live.com",
	"msn.com",
	"yahoo.com",
	"yahoo.co.uk",
	"yahoo.fr",
	"ymail.com",
	"icloud.com",
	"me.com",
	"mac.com",
	"aol.com",
	// Regional providers
	"mail.com",
	"email.com",
	"protonmail.com",
	"proton.me",
	"zoho.com",
	"fastmail.com",
	"tutanota.com",
	"gmx.com",
	"gmx.net",
	"web.de",
	// Temporary/disposable
	"mailinator.com",
	"tempmail.com",
	"guerrillamail.com",
	"10minutemail.com",
	"throwaway.email",
}

// Classification is the result of classifying an email address.
type Classification struct {
	ValidFormat bool
	IsBusiness  bool
	Domain      string
}

// Classifier checks addresses against a personal-domain denylist.
type Classifier struct {
	personal map[string]struct{}
}

// NewClassifier builds a classifier from a denylist. An empty list falls back
// to DefaultPersonalDomains.
func NewClassifier(personalDomains []string) *Classifier {
	if len(personalDomains) == 0 {
		personalDomains = DefaultPersonalDomains
	}
	personal := make(map[string]struct{}, len(personalDomains))
	for _, d := range personalDomains {
		personal[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &Classifier{personal: personal}
}

// Classify reports whether the address is well-formed and whether its domain
// is a business domain. IsBusiness is false whenever ValidFormat is false.
func (c *Classifier) Classify(address string) Classification {
	address = strings.TrimSpace(address)
	if !formatPattern.MatchString(address) {
		return Classification{}
	}

	domain := Domain(address)
	_, personal := c.personal[domain]
	return Classification{
		ValidFormat: true,
		IsBusiness:  !personal,
		Domain:      domain,
	}
}

// Valid reports whether the address is well-formed.
func Valid(address string) bool {
	return formatPattern.MatchString(strings.TrimSpace(address))
}

// Domain extracts the lowercased domain after the final @. Returns "" when
// the address has no @.
func Domain(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[at+1:]))
}
