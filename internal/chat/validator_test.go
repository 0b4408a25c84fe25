package chat

import (
	"strings"
	"testing"
)

func TestValidateInbound(t *testing.T) {
	tests := []struct {
		name    string
		in      Inbound
		wantErr bool
	}{
		{"valid text", Inbound{Username: "alice", Room: "general", Content: "hi", Kind: KindText}, false},
		{"kind defaults later", Inbound{Username: "alice", Room: "general", Content: "hi"}, false},
		{"missing room", Inbound{Username: "alice", Content: "hi"}, true},
		{"missing author", Inbound{Room: "general", Content: "hi"}, true},
		{"unknown kind", Inbound{Username: "alice", Room: "general", Content: "hi", Kind: "VIDEO"}, true},
		{"empty content", Inbound{Username: "alice", Room: "general"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInbound(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInbound(%+v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"plain", "hello", false},
		{"unicode", "héllo wörld 世界", false},
		{"at byte limit", strings.Repeat("a", MaxContentBytes), true}, // also over char limit
		{"under both limits", strings.Repeat("a", MaxContentChars), false},
		{"over byte limit", strings.Repeat("a", MaxContentBytes+1), true},
		{"over char limit", strings.Repeat("世", MaxContentChars+1), true},
		{"empty", "", true},
		{"invalid utf8", "abc\xff\xfe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContent(%d bytes) error = %v, wantErr %v", len(tt.text), err, tt.wantErr)
			}
		})
	}
}
