package models

// SiteConfig is the singleton site configuration document. It is lazily
// created with defaults on first read if absent.
type SiteConfig struct {
	Title   string `db:"title" json:"title"`
	Tagline string `db:"tagline" json:"tagline"`
}
