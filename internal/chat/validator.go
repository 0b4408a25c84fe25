package chat

import (
	"fmt"
	"unicode/utf8"
)

const (
	MaxContentBytes = 4096 // max payload accepted per message
	MaxContentChars = 2000 // max character count
)

// ValidateInbound checks that an inbound message is well formed before
// it enters the processing pipeline: non-empty content within the size
// limits, valid UTF-8, a non-empty room and author, and a known kind.
func ValidateInbound(in Inbound) error {
	if in.Room == "" {
		return fmt.Errorf("message has no room")
	}
	if in.Username == "" {
		return fmt.Errorf("message has no author")
	}
	if in.Kind != "" && !validKinds[in.Kind] {
		return fmt.Errorf("unknown message kind %q", in.Kind)
	}
	return ValidateContent(in.Content)
}

// ValidateContent checks the message body alone.
func ValidateContent(text string) error {
	if len(text) == 0 {
		return fmt.Errorf("message text is empty")
	}
	if len(text) > MaxContentBytes {
		return fmt.Errorf("message exceeds %d byte limit", MaxContentBytes)
	}
	if utf8.RuneCountInString(text) > MaxContentChars {
		return fmt.Errorf("message exceeds %d character limit", MaxContentChars)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("message contains invalid UTF-8")
	}
	return nil
}
