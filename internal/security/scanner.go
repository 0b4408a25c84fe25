package security

import (
	"context"
	"log"
	"time"
)

// Scanner orchestrates the moderation pipeline for one relay process.
// It holds no mutable state, so a single Scanner is safe for any number
// of concurrent Scan calls.
type Scanner struct {
	catalog  *Catalog
	advisory *AdvisoryClient

	// extract is the URL extraction step, a field so tests can inject a
	// faulting stage to exercise the fail-open path.
	extract func(string) []string
}

// NewScanner returns a Scanner using the given catalog. advisory may be
// nil, in which case URL analysis goes straight from the catalog to the
// local heuristics.
func NewScanner(catalog *Catalog, advisory *AdvisoryClient) *Scanner {
	return &Scanner{
		catalog:  catalog,
		advisory: advisory,
		extract:  ExtractURLs,
	}
}

// Scan classifies text and returns the aggregate verdict. Findings keep
// discovery order: one threat per flagged URL, in the order the URLs
// appear in the text, followed by the credential-pattern threat if it
// fired. The verdict is BLOCKED iff at least one threat is malicious,
// THREAT_DETECTED for suspicious-only findings, SAFE otherwise.
//
// A hard fault anywhere in the pipeline is recovered into StatusError
// with Blocked=false. The relay fails open by design: chat availability
// outranks suppressing a message we could not scan, and callers accept
// that an errored scan is delivered unscreened.
func (s *Scanner) Scan(ctx context.Context, text string) (result ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[security] scan fault: %v (failing open)", r)
			result = ScanResult{
				Status:   StatusError,
				Blocked:  false,
				ScanTime: time.Now(),
			}
		}
	}()

	var threats []Threat
	for _, url := range s.extract(text) {
		if threat, ok := s.AnalyzeURL(ctx, url); ok {
			threats = append(threats, threat)
		}
	}
	if threat, ok := s.ScanPatterns(text); ok {
		threats = append(threats, threat)
	}

	result = ScanResult{Status: StatusSafe, ScanTime: time.Now()}
	if len(threats) == 0 {
		return result
	}

	blocked := false
	for _, threat := range threats {
		if threat.Risk == RiskMalicious {
			blocked = true
			break
		}
	}

	result.Threats = threats
	result.Blocked = blocked
	if blocked {
		result.Status = StatusBlocked
	} else {
		result.Status = StatusThreatDetected
	}
	return result
}
