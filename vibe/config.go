package vibe

import (
	"fmt"
	"time"
)

// Config is the small set of options the driver passes into the core.
type Config struct {
	Level         VerifyLevel
	VerifyTimeout time.Duration
	IndentWidth   int
	Oracle        Oracle
}

// DefaultConfig verifies at the hybrid level with a one second oracle
// budget and two-space formatting.
func DefaultConfig() Config {
	return Config{
		Level:         LevelHybrid,
		VerifyTimeout: time.Second,
		IndentWidth:   2,
	}
}

// ParseLevel validates a verification level name.
func ParseLevel(name string) (VerifyLevel, error) {
	switch VerifyLevel(name) {
	case LevelNone, LevelRuntime, LevelHybrid, LevelFull:
		return VerifyLevel(name), nil
	}
	return "", fmt.Errorf("unknown verification level %q (want none, runtime, hybrid, or full)", name)
}
