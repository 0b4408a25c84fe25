package security

// ScanPatterns checks the whole message text for credential-harvesting
// language, independently of any URLs it may carry. A match yields a
// single suspicious-tier threat; the orchestrator adds it after any
// URL-derived findings.
func (s *Scanner) ScanPatterns(text string) (Threat, bool) {
	if !s.catalog.CredentialPattern().MatchString(text) {
		return Threat{}, false
	}
	return Threat{
		Type:       ThreatCredentialHarvesting,
		Content:    text,
		Risk:       RiskSuspicious,
		Confidence: 0.7,
		Reasons:    []string{"Possible credential harvesting attempt"},
		RiskScore:  70,
	}, true
}
