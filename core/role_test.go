package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole("data_architect")
	assert.NoError(t, err)
	assert.Equal(t, RoleDataArchitect, r)
	assert.Equal(t, CategoryPlanning, r.Category())

	_, err = ParseRole("wizard")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRoles_ClosedSet(t *testing.T) {
	roles := Roles()
	assert.Len(t, roles, 8)
	assert.Equal(t, RoleCoordinator, roles[0])
	for _, r := range roles {
		assert.True(t, r.Valid(), r)
		assert.NotEmpty(t, r.Category(), r)
	}
	assert.True(t, RoleCoordinator.IsCoordinator())
	assert.False(t, RoleQAEngineer.IsCoordinator())
}

func TestAgentStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to AgentStatus
		ok       bool
	}{
		{StatusIdle, StatusWorking, true},
		{StatusIdle, StatusCompleted, false},
		{StatusIdle, StatusError, false},
		{StatusWorking, StatusCompleted, true},
		{StatusWorking, StatusError, true},
		{StatusWorking, StatusWaiting, true},
		{StatusWaiting, StatusWorking, true},
		{StatusWaiting, StatusCompleted, false},
		{StatusCompleted, StatusWorking, true},
		{StatusCompleted, StatusError, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusWaiting.IsActive())
	assert.False(t, StatusIdle.IsActive())
}
