package postgres

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usenexus/nexus/store"
)

func TestSanitizeScore(t *testing.T) {
	assert.Equal(t, 0.0, sanitizeScore(math.NaN()))
	assert.Equal(t, 0.0, sanitizeScore(math.Inf(1)))
	assert.Equal(t, 0.0, sanitizeScore(math.Inf(-1)))

	assert.Equal(t, 0.87, sanitizeScore(0.87))
	assert.Equal(t, -0.5, sanitizeScore(-0.5))
	assert.Equal(t, 0.0, sanitizeScore(0))
}

// A zero-norm stored embedding makes the database compute a NaN
// similarity. The sanitized score must survive JSON encoding so one
// degenerate row cannot abort a whole search response.
func TestSanitizedScoreIsSerializable(t *testing.T) {
	result := &store.ItemWithScore{
		Item:  &store.Item{ID: "mem_degenerate", Source: store.SourceMemory},
		Score: sanitizeScore(math.NaN()),
	}

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Score":0`)
}
