package model

import (
	"time"

	"github.com/kyokomi/emoji/v2"
)

// The library pads every glyph with a trailing space by default; aliases are
// replaced in place here, so ":sparkles: fast" renders as "✨ fast".
func init() {
	emoji.ReplacePadding = ""
}

// TitleLayout renders a reminder's creation time, e.g. "Tuesday 2025-03-04 09:15:00".
const TitleLayout = "Monday 2006-01-02 15:04:05"

// StarFields is the shape shared by a promoted Star and a staged TempStar.
//
// COMPOSITION OVER INHERITANCE:
// Both Star and TempStar embed StarFields. Embedding promotes the fields, so
// star.Owner works directly, and both types get DescriptionPretty for free.
//
// Description keeps GitHub's raw shortcode form (":rocket: fast"). We never
// rewrite it on the way in; rendering happens on the way out.
type StarFields struct {
	Provider    string `json:"provider"`   // e.g. "github"
	ProviderID  string `json:"providerId"` // repository ID scoped to the provider
	Owner       string `json:"owner"`
	OwnerID     string `json:"ownerId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StarCount   int    `json:"starCount"`
	RepoURL     string `json:"repoUrl"`
}

// FullName returns "owner/name".
func (f StarFields) FullName() string {
	return f.Owner + "/" + f.Name
}

// DescriptionPretty converts shortcode aliases like ":sparkles:" into glyphs.
// Value receiver: the stored Description is never touched.
func (f StarFields) DescriptionPretty() string {
	if f.Description == "" {
		return ""
	}
	return emoji.Sprint(f.Description)
}

// Star is a starred repository that belongs to a Reminder.
type Star struct {
	ID         string `json:"id"`
	ReminderID string `json:"reminderId"`
	StarFields
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Reminder groups the stars surfaced to a user at one point in time.
type Reminder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Title is derived from CreatedAt and never stored.
func (r Reminder) Title() string {
	return "Reminder: " + r.CreatedAt.Format(TitleLayout)
}

// TempStar is a staged star waiting to be promoted into a Reminder.
//
// PriorityScore here is independent of StarAnalysis.PriorityScore; the two
// are written by different stages and are not kept in sync.
type TempStar struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	StarFields
	PriorityScore float64   `json:"priorityScore"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Fields returns the shared star shape, used when promoting into a Star.
func (t TempStar) Fields() StarFields {
	return t.StarFields
}

// SearchableStar is a star with what full-text search needs alongside it.
type SearchableStar struct {
	Star
	UserID string
	Readme string // empty until the README has been fetched
}
