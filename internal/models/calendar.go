package models

// Calendar stores events keyed year → month → day.
type Calendar struct {
	Events EventTree `json:"events,omitempty"`
}

type EventTree map[string]MonthEvents

type MonthEvents map[string]DayEvents

type DayEvents map[string][]map[string]any

// DeleteEvent removes the event at index under year/month/day and prunes
// emptied day, month and year branches. It reports whether anything was
// removed.
func (c *Calendar) DeleteEvent(year, month, day string, index int) bool {
	months, ok := c.Events[year]
	if !ok {
		return false
	}
	days, ok := months[month]
	if !ok {
		return false
	}
	events, ok := days[day]
	if !ok || index < 0 || index >= len(events) {
		return false
	}

	events = append(events[:index], events[index+1:]...)
	if len(events) == 0 {
		delete(days, day)
	} else {
		days[day] = events
	}
	if len(days) == 0 {
		delete(months, month)
	}
	if len(months) == 0 {
		delete(c.Events, year)
	}
	return true
}

func (t EventTree) MarshalJSON() ([]byte, error) {
	keys := mapKeys(t)
	numericKeysAsc(keys)
	return marshalOrderedObject(keys, func(k string) any { return t[k] })
}

func (m MonthEvents) MarshalJSON() ([]byte, error) {
	keys := mapKeys(m)
	numericKeysAsc(keys)
	return marshalOrderedObject(keys, func(k string) any { return m[k] })
}

func (d DayEvents) MarshalJSON() ([]byte, error) {
	keys := mapKeys(d)
	numericKeysAsc(keys)
	return marshalOrderedObject(keys, func(k string) any { return d[k] })
}
