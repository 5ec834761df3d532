package hl7

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ControlIDGenerator produces message control IDs (MSH-10). The default
// implementation draws from a cryptographically strong UUID source; tests
// inject a fixed generator via Builder.WithControlIDGenerator.
type ControlIDGenerator interface {
	NewControlID() string
}

// uuidControlIDGenerator is the default ControlIDGenerator: a random UUID
// with hyphens removed, upper-cased, and truncated to 20 characters. The
// collision probability over any realistic message volume is negligible.
type uuidControlIDGenerator struct{}

// NewControlID implements ControlIDGenerator.
func (uuidControlIDGenerator) NewControlID() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	if len(raw) > 20 {
		raw = raw[:20]
	}
	return raw
}

// DefaultControlIDGenerator returns the standard uuid-backed generator.
func DefaultControlIDGenerator() ControlIDGenerator {
	return uuidControlIDGenerator{}
}

// Clock supplies the current time. The default implementation calls
// time.Now(); tests inject a fixed clock via Builder.WithClock.
type Clock interface {
	Now() time.Time
}

// systemClock is the default Clock, backed by time.Now.
type systemClock struct{}

// Now implements Clock.
func (systemClock) Now() time.Time { return time.Now() }

// DefaultClock returns the standard system clock.
func DefaultClock() Clock { return systemClock{} }
