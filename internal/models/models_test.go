package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ModelsTestSuite struct {
	suite.Suite
}

func (s *ModelsTestSuite) TestStatusTerminal() {
	assert.False(s.T(), AssignmentStatusPending.Terminal())
	assert.True(s.T(), AssignmentStatusAccepted.Terminal())
	assert.True(s.T(), AssignmentStatusRejected.Terminal())
	assert.False(s.T(), AssignmentStatus("done").Valid())
	assert.True(s.T(), AssignmentStatusPending.Valid())
}

func (s *ModelsTestSuite) TestTaskWindowInclusive() {
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	task := &Task{StartTime: start, Window: 30 * time.Minute}

	assert.Equal(s.T(), start.Add(30*time.Minute), task.Deadline())
	assert.True(s.T(), task.Open(start))
	assert.True(s.T(), task.Open(task.Deadline()))
	assert.False(s.T(), task.Open(start.Add(-time.Nanosecond)))
	assert.False(s.T(), task.Open(task.Deadline().Add(time.Nanosecond)))
}

func TestModelsTestSuite(t *testing.T) {
	suite.Run(t, new(ModelsTestSuite))
}
