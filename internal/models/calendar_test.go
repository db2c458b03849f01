package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarFixture() *Calendar {
	return &Calendar{Events: EventTree{
		"2024": {
			"3": {
				"15": {{"title": "a"}, {"title": "b"}},
			},
		},
	}}
}

func TestCalendar_DeleteEvent(t *testing.T) {
	cal := calendarFixture()
	assert.True(t, cal.DeleteEvent("2024", "3", "15", 0))
	require.Len(t, cal.Events["2024"]["3"]["15"], 1)
	assert.Equal(t, "b", cal.Events["2024"]["3"]["15"][0]["title"])
}

func TestCalendar_DeleteEventPrunesEmptyBranches(t *testing.T) {
	cal := calendarFixture()
	assert.True(t, cal.DeleteEvent("2024", "3", "15", 1))
	assert.True(t, cal.DeleteEvent("2024", "3", "15", 0))
	_, ok := cal.Events["2024"]
	assert.False(t, ok, "emptied year branch should be pruned")
}

func TestCalendar_DeleteEventMisses(t *testing.T) {
	cal := calendarFixture()
	assert.False(t, cal.DeleteEvent("2025", "3", "15", 0))
	assert.False(t, cal.DeleteEvent("2024", "4", "15", 0))
	assert.False(t, cal.DeleteEvent("2024", "3", "16", 0))
	assert.False(t, cal.DeleteEvent("2024", "3", "15", 5))
	assert.False(t, cal.DeleteEvent("2024", "3", "15", -1))
}

func TestEventTree_MarshalNumericOrder(t *testing.T) {
	cal := &Calendar{Events: EventTree{
		"2024": {
			"10": {"1": {}},
			"2":  {"1": {}},
		},
		"2023": {"1": {"1": {}}},
	}}
	data, err := json.Marshal(cal)
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.Index(s, `"2023"`) < strings.Index(s, `"2024"`))
	assert.True(t, strings.Index(s, `"2"`) < strings.Index(s, `"10"`), "months compare numerically: %s", s)
}

func TestCalendar_EmptyOmitsEvents(t *testing.T) {
	data, err := json.Marshal(&Calendar{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
