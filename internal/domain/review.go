// Package domain contains the core business entities for the Aurelius catalogue service.
package domain

import (
	"time"
)

// Review is a user's opinion of a title. A user submits at most one review
// per title; the pair (TitleID, AuthorID) is unique. Author and title are
// fixed at creation and never change through updates.
type Review struct {
	// ID is the unique identifier (auto-generated).
	ID int64 `json:"id"`

	// TitleID is the reviewed title. Immutable.
	TitleID int64 `json:"-"`

	// AuthorID is the review's author. Immutable.
	AuthorID int64 `json:"-"`

	// Author is the author's username, resolved on read.
	Author string `json:"author"`

	// Text is the review body.
	Text string `json:"text"`

	// Score is the author's rating of the title, an integer in [1, 10].
	Score int `json:"score"`

	// CreatedAt orders reviews newest-first.
	CreatedAt time.Time `json:"pub_date"`
}

// Comment is a user's remark on a review. Author is fixed at creation.
type Comment struct {
	// ID is the unique identifier (auto-generated).
	ID int64 `json:"id"`

	// ReviewID is the commented review. Immutable.
	ReviewID int64 `json:"-"`

	// AuthorID is the comment's author. Immutable.
	AuthorID int64 `json:"-"`

	// Author is the author's username, resolved on read.
	Author string `json:"author"`

	// Text is the comment body.
	Text string `json:"text"`

	// CreatedAt orders comments newest-first.
	CreatedAt time.Time `json:"pub_date"`
}
