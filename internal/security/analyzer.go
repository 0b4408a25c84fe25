package security

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ipHostPattern matches URLs whose host is a dotted-quad IP literal.
// The trailing group requires the host to end after the quad, so a
// domain that merely starts with four numeric labels does not match.
var ipHostPattern = regexp.MustCompile(`^https?://\d{1,3}(?:\.\d{1,3}){3}(?:[/:?#]|$)`)

// AnalyzeURL classifies a single URL. Checks run in a fixed order and
// the first stage that produces a verdict wins:
//
//  1. threat catalog — a known phishing domain is malicious, no appeal;
//  2. external advisory — its record is used verbatim on a hit, a clean
//     answer ends the analysis, and an outage falls through;
//  3. local heuristics — offline structural analysis of the URL.
//
// The boolean is false when no stage found anything.
func (s *Scanner) AnalyzeURL(ctx context.Context, url string) (Threat, bool) {
	if s.catalog.IsKnownMaliciousDomain(url) {
		return Threat{
			Type:       ThreatMaliciousDomain,
			Content:    url,
			Risk:       RiskMalicious,
			Confidence: 0.95,
			Reasons:    []string{"Known phishing domain"},
			RiskScore:  95,
		}, true
	}

	if s.advisory != nil {
		threat, outcome := s.advisory.Lookup(ctx, url)
		switch outcome {
		case AdvisoryHit:
			return threat, true
		case AdvisoryMiss:
			return Threat{}, false
		}
		// AdvisoryUnavailable degrades to the heuristics below.
	}

	return s.analyzeURLLocally(url)
}

// analyzeURLLocally applies the offline heuristics. Each marker adds 20
// risk points, capped at 80; 60 or more is malicious, anything below is
// suspicious. Confidence tracks the score so the two stay coherent.
func (s *Scanner) analyzeURLLocally(url string) (Threat, bool) {
	var reasons []string

	if ipHostPattern.MatchString(url) {
		reasons = append(reasons, "Uses IP address instead of domain")
	}

	domain := extractDomain(url)
	if strings.Count(domain, ".") > 2 {
		reasons = append(reasons, "Excessive subdomains")
	}

	// Keyword scan covers the whole URL, not just the host, so that
	// keyword-stuffed paths on IP hosts are still caught. First match
	// only.
	lower := strings.ToLower(url)
	for _, kw := range s.catalog.SuspiciousKeywords() {
		if strings.Contains(lower, kw) {
			reasons = append(reasons, fmt.Sprintf("Suspicious keyword in domain: %s", kw))
			break
		}
	}

	if len(reasons) == 0 {
		return Threat{}, false
	}

	score := len(reasons) * 20
	if score > 80 {
		score = 80
	}
	risk := RiskSuspicious
	if score >= 60 {
		risk = RiskMalicious
	}

	return Threat{
		Type:       ThreatSuspiciousURL,
		Content:    url,
		Risk:       risk,
		Confidence: float64(score) / 100,
		Reasons:    reasons,
		RiskScore:  score,
	}, true
}

// extractDomain strips the scheme and path from a URL, leaving the host.
func extractDomain(url string) string {
	domain := strings.TrimPrefix(url, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	if i := strings.Index(domain, "/"); i >= 0 {
		domain = domain[:i]
	}
	return domain
}
