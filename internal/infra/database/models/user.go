package models

import "time"

// User is one row of the flat directory used for search. The
// authoritative user record lives in the tree store; this table only
// resolves names and safe emails.
type User struct {
	SafeEmail string    `json:"safe_email" gorm:"primaryKey;type:text"`
	Name      string    `json:"name" gorm:"type:text;index"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
