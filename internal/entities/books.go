package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReadingStatus is one of the three fixed OpenLibrary reading-log shelves.
type ReadingStatus string

const (
	StatusWantToRead       ReadingStatus = "want_to_read"
	StatusCurrentlyReading ReadingStatus = "currently_reading"
	StatusAlreadyRead      ReadingStatus = "already_read"
)

// AllReadingStatuses lists the shelves in sync order.
var AllReadingStatuses = []ReadingStatus{
	StatusWantToRead,
	StatusCurrentlyReading,
	StatusAlreadyRead,
}

// Valid reports whether s is one of the three known shelves.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusWantToRead, StatusCurrentlyReading, StatusAlreadyRead:
		return true
	}
	return false
}

// StringList is a JSON-serialized list of strings stored in a single text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported string list column type %T", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// Book is a cached reading-log entry. The primary key is the composite
// title+author key generated by the bookkey package; it is never regenerated
// for an existing record, so repeated syncs upsert in place.
type Book struct {
	Key         string        `gorm:"primaryKey;size:128" json:"key"`
	Title       string        `gorm:"index;size:512" json:"title"`
	Authors     StringList    `gorm:"type:text" json:"authors"`
	CoverURL    string        `gorm:"size:2048" json:"cover_url,omitempty"`
	PublishYear int           `json:"publish_year,omitempty"` // 0 means unknown
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Subjects    StringList    `gorm:"type:text" json:"subjects,omitempty"`
	Status      ReadingStatus `gorm:"index;size:20" json:"reading_status"`
	WorkKey     string        `gorm:"size:64" json:"work_key,omitempty"`
	EditionKey  string        `gorm:"size:64" json:"edition_key,omitempty"`

	// DateAdded is milliseconds since epoch, taken from the reading-log
	// entry's logged date. Default sort key for the book list.
	DateAdded int64 `gorm:"index" json:"date_added"`

	// IsFavorite is derived by joining with the favourites table at read
	// time; it is not a persisted column.
	IsFavorite bool `gorm:"-" json:"is_favorite"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FirstAuthor returns the first author or an empty string.
func (b Book) FirstAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}

// Favourite marks a cached book as favourited. At most one record exists per
// book key; deleting the book cascades here.
type Favourite struct {
	BookKey   string `gorm:"primaryKey;size:128" json:"book_key"`
	Book      Book   `gorm:"foreignKey:BookKey;constraint:OnDelete:CASCADE" json:"-"`
	DateAdded int64  `gorm:"index" json:"date_added"`
}

// Setting is a persisted key-value application setting. Best effort only:
// missing or corrupt values degrade to documented defaults.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

func (Favourite) TableName() string {
	return "favourites"
}

func (Setting) TableName() string {
	return "settings"
}
