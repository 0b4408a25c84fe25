package security

import (
	"context"
	"testing"
)

func newTestScanner() *Scanner {
	return NewScanner(NewCatalog(), nil)
}

func TestAnalyzeURL_CatalogHit(t *testing.T) {
	s := newTestScanner()

	threat, ok := s.AnalyzeURL(context.Background(), "http://fake-login.com/reset")
	if !ok {
		t.Fatal("expected a threat for a catalogued domain")
	}
	if threat.Type != ThreatMaliciousDomain {
		t.Errorf("Type = %q, want %q", threat.Type, ThreatMaliciousDomain)
	}
	if threat.Risk != RiskMalicious {
		t.Errorf("Risk = %q, want %q", threat.Risk, RiskMalicious)
	}
	if threat.RiskScore != 95 {
		t.Errorf("RiskScore = %d, want 95", threat.RiskScore)
	}
	if threat.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95", threat.Confidence)
	}
	if len(threat.Reasons) != 1 || threat.Reasons[0] != "Known phishing domain" {
		t.Errorf("Reasons = %v, want [Known phishing domain]", threat.Reasons)
	}
	if threat.Content != "http://fake-login.com/reset" {
		t.Errorf("Content = %q, want the url", threat.Content)
	}
}

func TestAnalyzeURL_Heuristics(t *testing.T) {
	s := newTestScanner()

	tests := []struct {
		name      string
		url       string
		wantHit   bool
		wantRisk  RiskTier
		wantScore int
		reasons   int
	}{
		{
			// IP literal + >2 dots in the host + keyword in the path:
			// three markers, 60 points, malicious.
			name:      "ip host with keyword path",
			url:       "http://192.168.1.5/verify-login-account",
			wantHit:   true,
			wantRisk:  RiskMalicious,
			wantScore: 60,
			reasons:   3,
		},
		{
			// An IP host alone still counts the dotted quad as
			// excessive subdomains: two markers, suspicious.
			name:      "bare ip host",
			url:       "http://10.0.0.1/",
			wantHit:   true,
			wantRisk:  RiskSuspicious,
			wantScore: 40,
			reasons:   2,
		},
		{
			name:      "keyword in domain only",
			url:       "http://bank.example.com/",
			wantHit:   true,
			wantRisk:  RiskSuspicious,
			wantScore: 20,
			reasons:   1,
		},
		{
			name:      "deep subdomain chain",
			url:       "http://a.b.c.example.com/page",
			wantHit:   true,
			wantRisk:  RiskSuspicious,
			wantScore: 20,
			reasons:   1,
		},
		{
			// Four numeric labels followed by more host: not an IP
			// literal, only the subdomain-depth marker fires.
			name:      "numeric labels inside a longer host",
			url:       "http://1.2.3.4.evil.example/",
			wantHit:   true,
			wantRisk:  RiskSuspicious,
			wantScore: 20,
			reasons:   1,
		},
		{
			// No trailing slash: the quad still ends the host.
			name:      "bare ip without path",
			url:       "http://10.0.0.1",
			wantHit:   true,
			wantRisk:  RiskSuspicious,
			wantScore: 40,
			reasons:   2,
		},
		{
			name:    "clean url",
			url:     "http://example.com/page",
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threat, ok := s.AnalyzeURL(context.Background(), tt.url)
			if ok != tt.wantHit {
				t.Fatalf("AnalyzeURL(%q) hit = %v, want %v", tt.url, ok, tt.wantHit)
			}
			if !tt.wantHit {
				return
			}
			if threat.Type != ThreatSuspiciousURL {
				t.Errorf("Type = %q, want %q", threat.Type, ThreatSuspiciousURL)
			}
			if threat.Risk != tt.wantRisk {
				t.Errorf("Risk = %q, want %q", threat.Risk, tt.wantRisk)
			}
			if threat.RiskScore != tt.wantScore {
				t.Errorf("RiskScore = %d, want %d", threat.RiskScore, tt.wantScore)
			}
			if len(threat.Reasons) != tt.reasons {
				t.Errorf("Reasons = %v, want %d entries", threat.Reasons, tt.reasons)
			}
			want := float64(tt.wantScore) / 100
			if threat.Confidence != want {
				t.Errorf("Confidence = %v, want %v", threat.Confidence, want)
			}
		})
	}
}

func TestAnalyzeURL_FirstKeywordWins(t *testing.T) {
	s := newTestScanner()

	// Both "verify" and "login" appear; "login" has higher priority in
	// the keyword list so it must be the one reported, once.
	threat, ok := s.AnalyzeURL(context.Background(), "http://verify-login.example.com/")
	if !ok {
		t.Fatal("expected a threat")
	}
	found := 0
	for _, reason := range threat.Reasons {
		if reason == "Suspicious keyword in domain: login" {
			found++
		}
		if reason == "Suspicious keyword in domain: verify" {
			t.Errorf("keyword scan should have stopped at %q", "login")
		}
	}
	if found != 1 {
		t.Errorf("expected exactly one keyword reason, reasons = %v", threat.Reasons)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://example.com/path/x", "example.com"},
		{"https://a.b.example.com", "a.b.example.com"},
		{"http://192.168.1.5/verify", "192.168.1.5"},
		{"https://example.com", "example.com"},
	}

	for _, tt := range tests {
		if got := extractDomain(tt.url); got != tt.want {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
