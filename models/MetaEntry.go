package models

// MetaEntry is a single key/value record used for bookkeeping such as the demo seed version.
type MetaEntry struct {
	Key   string `gorm:"primaryKey;size:128" json:"key"`
	Value string `gorm:"type:text;not null" json:"value"`
}
