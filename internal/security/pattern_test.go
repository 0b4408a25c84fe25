package security

import "testing"

func TestScanPatterns(t *testing.T) {
	s := newTestScanner()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"password request", "Please enter your password to continue", true},
		{"login request", "confirm your LOGIN details", true},
		{"credit card", "send me your credit card number", true},
		{"social security", "we need your Social Security number", true},
		{"benign", "lunch at noon?", false},
		{"empty", "", false},
		{"substring of benign word", "the passwordless flow works", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threat, ok := s.ScanPatterns(tt.text)
			if ok != tt.want {
				t.Fatalf("ScanPatterns(%q) hit = %v, want %v", tt.text, ok, tt.want)
			}
			if !ok {
				return
			}
			if threat.Type != ThreatCredentialHarvesting {
				t.Errorf("Type = %q, want %q", threat.Type, ThreatCredentialHarvesting)
			}
			if threat.Risk != RiskSuspicious {
				t.Errorf("Risk = %q, want %q", threat.Risk, RiskSuspicious)
			}
			if threat.Content != tt.text {
				t.Errorf("Content = %q, want the full message text", threat.Content)
			}
			if threat.RiskScore != 70 || threat.Confidence != 0.7 {
				t.Errorf("score = %d/%.2f, want 70/0.70", threat.RiskScore, threat.Confidence)
			}
			if len(threat.Reasons) != 1 || threat.Reasons[0] != "Possible credential harvesting attempt" {
				t.Errorf("Reasons = %v", threat.Reasons)
			}
		})
	}
}
