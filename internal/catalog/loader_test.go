package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

func writeTable(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Len(t, c.Activities, 11)
	assert.Len(t, c.Rooms, 9)
	assert.Len(t, c.TimeSlots, 6)
	assert.Len(t, c.Facilitators, 10)

	// 每次返回独立的副本
	c.Rooms[0].Capacity = 1
	assert.Equal(t, 45, Default().Rooms[0].Capacity)
}

func TestWriteDirThenLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDir(dir, Default()))

	loaded, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, RoomsFile, "name,capacity\nA 1,10\nFar 2,40\n")
	writeTable(t, dir, TimeSlotsFile, "label\n9 AM\n10 AM\n")
	writeTable(t, dir, FacilitatorsFile, "name\nAnn\nBob\n")
	writeTable(t, dir, ActivitiesFile, "id,expected_enrollment,preferred,acceptable,linked\n"+
		"L1,10,Ann,Bob,lower\n"+
		"L2,10,Ann| Bob,,lower\n"+
		"U1,20,,Ann,upper\n"+
		"U2,20,Bob,,UPPER\n"+
		"X,5,,,\n")

	c, err := Load(dir, []string{"Far"})
	require.NoError(t, err)

	assert.Equal(t, []domain.Room{{Name: "A 1", Capacity: 10}, {Name: "Far 2", Capacity: 40}}, c.Rooms)
	assert.Equal(t, []string{"9 AM", "10 AM"}, c.TimeSlots)
	assert.Equal(t, []string{"Ann", "Bob"}, c.Facilitators)
	assert.Equal(t, []string{"Ann", "Bob"}, c.Activities[1].Preferred)
	assert.Empty(t, c.Activities[4].Preferred)
	assert.Equal(t, domain.LinkedSections{Lower: [2]string{"L1", "L2"}, Upper: [2]string{"U1", "U2"}}, c.Linked)
	assert.Equal(t, []string{"Far"}, c.FarBuildings)
}

func TestLoadErrors(t *testing.T) {
	valid := map[string]string{
		RoomsFile:        "name,capacity\nA 1,10\n",
		TimeSlotsFile:    "label\n9 AM\n",
		FacilitatorsFile: "name\nAnn\n",
		ActivitiesFile: "id,expected_enrollment,preferred,acceptable,linked\n" +
			"L1,10,Ann,,lower\nL2,10,Ann,,lower\nU1,10,Ann,,upper\nU2,10,Ann,,upper\n",
	}

	cases := map[string]map[string]string{
		"unknown facilitator": {
			ActivitiesFile: "id,expected_enrollment,preferred,acceptable,linked\n" +
				"L1,10,Zed,,lower\nL2,10,Ann,,lower\nU1,10,Ann,,upper\nU2,10,Ann,,upper\n",
		},
		"missing linked": {
			ActivitiesFile: "id,expected_enrollment,preferred,acceptable,linked\n" +
				"L1,10,Ann,,lower\nU1,10,Ann,,upper\nU2,10,Ann,,upper\n",
		},
		"bad linked value": {
			ActivitiesFile: "id,expected_enrollment,preferred,acceptable,linked\n" +
				"L1,10,Ann,,middle\nL2,10,Ann,,lower\nU1,10,Ann,,upper\nU2,10,Ann,,upper\n",
		},
		"no rooms": {
			RoomsFile: "name,capacity\n",
		},
		"zero capacity": {
			RoomsFile: "name,capacity\nA 1,0\n",
		},
	}

	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for file, content := range valid {
				if o, ok := overrides[file]; ok {
					content = o
				}
				writeTable(t, dir, file, content)
			}

			_, err := Load(dir, nil)
			require.ErrorIs(t, err, domain.ErrInvalidCatalog)
		})
	}

	_, err := Load(t.TempDir(), nil)
	require.Error(t, err)
}

func TestFromDir(t *testing.T) {
	c, err := FromDir("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	c, err = FromDir("", []string{"Loft"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Loft"}, c.FarBuildings)
}
