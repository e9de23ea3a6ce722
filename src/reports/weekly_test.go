package reports

import (
	"testing"

	"replate/src/types"

	"github.com/stretchr/testify/assert"
)

func TestTemplateNarrator(t *testing.T) {
	metrics := types.JSONB{
		"listings":           int64(12),
		"bookings":           int64(30),
		"collected":          int64(25),
		"quantity_collected": int64(80),
	}
	narrative, err := TemplateNarrator{}.Narrate(metrics)
	assert.Nil(t, err)
	assert.Contains(t, narrative, "12 listings")
	assert.Contains(t, narrative, "30 bookings")
	assert.Contains(t, narrative, "25 were collected")
	assert.Contains(t, narrative, "80 units")
}
