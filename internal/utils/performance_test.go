package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	done := OperationTimer("compute_snapshot", log)
	time.Sleep(5 * time.Millisecond)
	elapsed := done()

	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	assert.Contains(t, buf.String(), `"operation":"compute_snapshot"`)
	assert.NotContains(t, buf.String(), "Slow operation detected")
}
