package security

import "time"

// RiskTier ranks how dangerous a finding is. The set is closed: every
// consumer switches over exactly these three values.
type RiskTier string

const (
	RiskClean      RiskTier = "clean"
	RiskSuspicious RiskTier = "suspicious"
	RiskMalicious  RiskTier = "malicious"
)

// ScanStatus is the aggregate verdict for one scanned message.
type ScanStatus string

const (
	StatusScanning       ScanStatus = "SCANNING"
	StatusSafe           ScanStatus = "SAFE"
	StatusThreatDetected ScanStatus = "THREAT_DETECTED"
	StatusBlocked        ScanStatus = "BLOCKED"
	StatusError          ScanStatus = "ERROR"
)

// Threat category tags attached to findings.
const (
	ThreatMaliciousDomain      = "malicious_domain"
	ThreatSuspiciousURL        = "suspicious_url"
	ThreatCredentialHarvesting = "credential_harvesting"
)

// Threat is a single detected indicator of malicious or suspicious
// content. RiskScore and Confidence are stored independently; the
// analyzer that builds a Threat is responsible for keeping them
// coherent (a higher score never pairs with a lower confidence tier).
type Threat struct {
	Type       string   `json:"type"`
	Content    string   `json:"content"`
	Risk       RiskTier `json:"risk"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
	RiskScore  int      `json:"riskScore"`
}

// ScanResult is the verdict for one message: the threats found, the
// derived block decision, and when the scan completed. A ScanResult is
// never mutated after it is attached to a message.
type ScanResult struct {
	Status   ScanStatus `json:"status"`
	Threats  []Threat   `json:"threats,omitempty"`
	Blocked  bool       `json:"blocked"`
	ScanTime time.Time  `json:"scanTime"`
}
