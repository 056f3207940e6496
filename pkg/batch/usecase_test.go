package batch

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/artem13815/cvflow/pkg/cv"
)

func TestSummarize(t *testing.T) {
	id := uuid.New()
	qs := Summarize(id, map[cv.Status]int{
		cv.StatusRequested:   5,
		cv.StatusQueued:      2,
		cv.StatusProcessing:  1,
		cv.StatusCompleted:   4,
		cv.StatusShortlisted: 1,
		cv.StatusFailed:      2,
	})
	assert.Equal(t, id, qs.JobID)
	assert.Equal(t, 10, qs.Total)
	assert.Equal(t, 5, qs.Completed)
	assert.InDelta(t, 70.0, qs.ProgressPercent, 0.001)
	assert.Equal(t, 90, qs.EstimatedSeconds)
}

func TestSummarizeEmpty(t *testing.T) {
	qs := Summarize(uuid.New(), nil)
	assert.Zero(t, qs.Total)
	assert.Zero(t, qs.ProgressPercent)
}

func TestActorCanAccess(t *testing.T) {
	owner := uuid.New()
	assert.True(t, Actor{UserID: owner}.CanAccess(owner))
	assert.False(t, Actor{UserID: uuid.New()}.CanAccess(owner))
	assert.True(t, Actor{UserID: uuid.New(), IsAdmin: true}.CanAccess(owner))
}
