package models

import "fmt"

// FlashKind classifies a one-shot notice shown on the next rendered page.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// IsValid reports whether k is one of the known kinds.
func (k FlashKind) IsValid() bool {
	switch k {
	case FlashSuccess, FlashError:
		return true
	}
	return false
}

// String implements the fmt.Stringer interface.
func (k FlashKind) String() string {
	return string(k)
}

func (k *FlashKind) UnmarshalText(text []byte) error {
	s := FlashKind(text)
	if !s.IsValid() {
		return fmt.Errorf("invalid flash kind: %s", text)
	}
	*k = s
	return nil
}

func (k FlashKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Flash is a single-read message attached to one response only.
type Flash struct {
	Kind FlashKind `json:"kind"`
	Text string    `json:"text"`
}
