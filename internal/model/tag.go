package model

import "time"

// TagCategory classifies a Tag. It is metadata, not part of the tag's identity.
type TagCategory string

const (
	TagLanguage  TagCategory = "language"
	TagFramework TagCategory = "framework"
	TagTool      TagCategory = "tool"
	TagDomain    TagCategory = "domain"
	TagTopic     TagCategory = "topic"
)

// TagCategories lists every valid category in display order.
var TagCategories = []TagCategory{TagLanguage, TagFramework, TagTool, TagDomain, TagTopic}

// Valid reports whether c is one of the known categories.
func (c TagCategory) Valid() bool {
	for _, known := range TagCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Label is the human-readable category name.
func (c TagCategory) Label() string {
	switch c {
	case TagLanguage:
		return "Programming Language"
	case TagFramework:
		return "Framework"
	case TagTool:
		return "Tool"
	case TagDomain:
		return "Domain/Field"
	case TagTopic:
		return "Topic"
	}
	return string(c)
}

// Tag is a named label applied to analyses. Name is unique across all tags.
type Tag struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Category   TagCategory `json:"category"`
	UsageCount int         `json:"usageCount"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func (t Tag) String() string {
	return t.Name
}
