package models

import "time"

// HolidayType distinguishes gazetted from restricted holidays.
type HolidayType string

const (
	HolidayGazetted   HolidayType = "GAZETTED"
	HolidayRestricted HolidayType = "RESTRICTED"
)

// Valid reports a known holiday type.
func (t HolidayType) Valid() bool {
	return t == HolidayGazetted || t == HolidayRestricted
}

// Holiday is a calendar entry. Deactivated holidays are kept for history.
type Holiday struct {
	ID        string      `db:"id" json:"id"`
	Date      Date        `db:"date" json:"date"`
	Name      string      `db:"name" json:"name"`
	Type      HolidayType `db:"type" json:"type"`
	Active    bool        `db:"active" json:"active"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// HolidayFilter narrows holiday listings.
type HolidayFilter struct {
	Year int
	Type HolidayType
	From *Date
	To   *Date
}
