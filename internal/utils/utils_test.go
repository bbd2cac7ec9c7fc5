package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

func validEntries(c *domain.Catalog) []domain.ScheduleEntry {
	entries := make([]domain.ScheduleEntry, len(c.Activities))
	for i, a := range c.Activities {
		entries[i] = domain.ScheduleEntry{
			Activity:    a.ID,
			Room:        c.Rooms[i%len(c.Rooms)].Name,
			TimeSlot:    c.TimeSlots[i%len(c.TimeSlots)],
			Facilitator: c.Facilitators[i%len(c.Facilitators)],
		}
	}
	return entries
}

func TestValidateScheduleEntries(t *testing.T) {
	c := catalog.Default()
	require.NoError(t, ValidateScheduleEntries(validEntries(c), c))

	cases := map[string]func(entries []domain.ScheduleEntry) []domain.ScheduleEntry{
		"missing activity": func(entries []domain.ScheduleEntry) []domain.ScheduleEntry { return entries[1:] },
		"duplicated activity": func(entries []domain.ScheduleEntry) []domain.ScheduleEntry {
			entries[1].Activity = entries[0].Activity
			return entries
		},
		"unknown room": func(entries []domain.ScheduleEntry) []domain.ScheduleEntry {
			entries[2].Room = "Nowhere 000"
			return entries
		},
		"unknown slot": func(entries []domain.ScheduleEntry) []domain.ScheduleEntry {
			entries[3].TimeSlot = "9 PM"
			return entries
		},
		"unknown facilitator": func(entries []domain.ScheduleEntry) []domain.ScheduleEntry {
			entries[4].Facilitator = "Nobody"
			return entries
		},
	}
	for name, modify := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateScheduleEntries(modify(validEntries(c)), c))
		})
	}
}

func TestValidateScheduleRunParameters(t *testing.T) {
	c := catalog.Default()

	p := &domain.ScheduleRunParameters{
		Strategy:               domain.StrategySoftmax,
		InitialMutationRate:    0.01,
		MinMutationRate:        0.0001,
		LoadExemptFacilitators: []string{"Tyler"},
	}
	require.NoError(t, ValidateScheduleRunParameters(p, c))

	p.LoadExemptFacilitators = []string{"Nobody"}
	assert.Error(t, ValidateScheduleRunParameters(p, c))

	p.LoadExemptFacilitators = nil
	p.MinMutationRate = 0.5
	assert.Error(t, ValidateScheduleRunParameters(p, c))

	// rank 策略不使用最小变异概率
	p.Strategy = domain.StrategyRank
	assert.NoError(t, ValidateScheduleRunParameters(p, c))
}

func TestGenerateRandomUser(t *testing.T) {
	user, err := GenerateRandomUser("password", "example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, user.Username)
	assert.Equal(t, user.Username+"@example.com", user.Email)
	assert.Contains(t, []domain.Role{domain.RoleViewer, domain.RoleOperator}, user.Role)
	assert.NotEqual(t, "password", user.PasswordHash)
}

func TestGenerateUsernameFromChineseName(t *testing.T) {
	username := GenerateUsernameFromChineseName("王伟")
	assert.True(t, strings.HasPrefix(username, "w"), username)
}

func TestGenerateRandomScheduleRunParameters(t *testing.T) {
	defaults := domain.ScheduleRunParameters{
		Strategy:               domain.StrategyRank,
		PopulationSize:         500,
		MaxGenerations:         300,
		InitialMutationRate:    0.01,
		MinMutationRate:        0.0001,
		ConvergenceGeneration:  100,
		ConvergenceThreshold:   0.01,
		LoadExemptFacilitators: []string{"Tyler"},
	}

	for i := 0; i < 20; i++ {
		p := GenerateRandomScheduleRunParameters(defaults)
		assert.Greater(t, p.PopulationSize, 0)
		assert.Greater(t, p.MaxGenerations, 0)
		assert.LessOrEqual(t, p.ConvergenceGeneration, p.MaxGenerations)
		assert.Equal(t, defaults.LoadExemptFacilitators, p.LoadExemptFacilitators)
	}
}
