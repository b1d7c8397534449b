package model

import "time"

// Site is the single deployment record: the public domain and display name
// that OAuth callbacks and emails refer to.
type Site struct {
	ID     int    `json:"id"`
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

// SocialApp holds one OAuth provider's client credentials.
// There is at most one SocialApp per provider.
type SocialApp struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"` // e.g. "github"
	Name      string    `json:"name"`     // e.g. "GitHub"
	ClientID  string    `json:"clientId"`
	Secret    string    `json:"-"`
	SiteIDs   []int     `json:"siteIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
