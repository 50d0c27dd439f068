package models

import "time"

// UsageDateLayout is the calendar-day key of a usage record.
const UsageDateLayout = "2006-01-02"

// UsageRecord counts protected case views for one user on one calendar day.
type UsageRecord struct {
	ID          string    `bson:"id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	UsageDate   string    `bson:"usage_date" json:"usage_date"`
	CasesViewed int       `bson:"cases_viewed" json:"cases_viewed"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// UsageDate formats t as a usage record key in t's own location.
func UsageDate(t time.Time) string {
	return t.Format(UsageDateLayout)
}
