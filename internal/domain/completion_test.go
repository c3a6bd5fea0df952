package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccurrenceID_Deterministic(t *testing.T) {
	d := day(2024, time.January, 10)

	a := OccurrenceID("Full Body A", d)
	b := OccurrenceID("Full Body A", d)
	assert.Equal(t, a, b)

	// Wall-clock time within the day does not change the occurrence.
	c := OccurrenceID("Full Body A", d.Add(17*time.Hour+30*time.Minute))
	assert.Equal(t, a, c)

	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestOccurrenceID_DistinguishesTitleAndDay(t *testing.T) {
	d := day(2024, time.January, 10)

	assert.NotEqual(t, OccurrenceID("Full Body A", d), OccurrenceID("Full Body B", d))
	assert.NotEqual(t, OccurrenceID("Full Body A", d), OccurrenceID("Full Body A", d.AddDate(0, 0, 1)))
}
