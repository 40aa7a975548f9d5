package entities

import "time"

// DateLayout is the calendar-date format used for date_read in forms.
const DateLayout = "2006-01-02"

// Book is a catalog entry for a book that has been read.
type Book struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"column:book_title;size:512;not null" json:"title"`
	Author    string    `gorm:"column:author_name;size:256" json:"author"`
	ISBN      string    `gorm:"column:isbn;size:32" json:"isbn"`
	DateRead  time.Time `gorm:"column:date_read;index" json:"date_read"`
	Score     int       `gorm:"column:score;index" json:"score"`
	Review    string    `gorm:"column:book_review;type:text" json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "book"
}

// FormattedDateRead returns DateRead as YYYY-MM-DD for form inputs.
func (b Book) FormattedDateRead() string {
	if b.DateRead.IsZero() {
		return ""
	}
	return b.DateRead.Format(DateLayout)
}

// Note holds free-form notes for a book. BookID is unique: a book has at
// most one note.
type Note struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	BookID  uint   `gorm:"column:book_id;uniqueIndex;not null" json:"book_id"`
	Content string `gorm:"column:note_content;type:text" json:"content"`
	Book    *Book  `gorm:"foreignKey:BookID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Note) TableName() string {
	return "note"
}
