package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewSetsGlobalLevel(t *testing.T) {
	New(Config{Level: "debug"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	New(Config{Level: "error"})
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	New(Config{Level: "loud"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	New(Config{})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
