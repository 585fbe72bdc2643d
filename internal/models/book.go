package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	Description   string          `json:"description,omitempty"`
	ISBN          string          `json:"isbn,omitempty"`
	CoverImage    string          `json:"cover_image,omitempty"`
	Genre         []string        `json:"genre"`
	Condition     BookCondition   `json:"condition"`
	RentalPrice   decimal.Decimal `json:"rental_price"`
	Status        BookStatus      `json:"status"`
	Location      string          `json:"location,omitempty"`
	Pages         *int32          `json:"pages,omitempty"`
	PublishedYear *int32          `json:"published_year,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type BookCondition string

const (
	ConditionNew     BookCondition = "new"
	ConditionLikeNew BookCondition = "like_new"
	ConditionGood    BookCondition = "good"
	ConditionFair    BookCondition = "fair"
	ConditionPoor    BookCondition = "poor"
)

func (c BookCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

type BookStatus string

const (
	BookAvailable   BookStatus = "available"
	BookBorrowed    BookStatus = "borrowed"
	BookUnavailable BookStatus = "unavailable"
)

func (s BookStatus) Valid() bool {
	switch s {
	case BookAvailable, BookBorrowed, BookUnavailable:
		return true
	}
	return false
}

// BookFilter narrows a listing. Zero values are ignored.
type BookFilter struct {
	OwnerID string
	Status  BookStatus
	Genre   string
	Search  string
	Limit   int
	Offset  int
}

var (
	MinRentalPrice = decimal.Zero
	MaxRentalPrice = decimal.NewFromInt(10000)
)
