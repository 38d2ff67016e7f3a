package domain

import (
	"fmt"
	"time"
)

// PhotoCategory classifies a photo
type PhotoCategory string

const (
	CategorySelfie    PhotoCategory = "SELFIE"
	CategoryPortrait  PhotoCategory = "PORTRAIT"
	CategoryAction    PhotoCategory = "ACTION"
	CategoryLandscape PhotoCategory = "LANDSCAPE"
	CategoryGraphic   PhotoCategory = "GRAPHIC"
)

// PhotoCategories lists every category in schema order.
var PhotoCategories = []PhotoCategory{
	CategorySelfie,
	CategoryPortrait,
	CategoryAction,
	CategoryLandscape,
	CategoryGraphic,
}

// Valid reports whether c is a known category
func (c PhotoCategory) Valid() bool {
	for _, known := range PhotoCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Photo represents a posted photo
type Photo struct {
	// The ID of the photo, assigned by the store
	ID string `json:"id"`

	// The name of the photo
	Name string `json:"name"`

	// The description of the photo
	Description string `json:"description"`

	// The category of the photo
	Category PhotoCategory `json:"category"`

	// GithubLogin of the user who posted the photo
	UserID string `json:"userID"`

	// When the photo was stored
	Created time.Time `json:"created"`
}

// URL is where the uploaded image for the photo is served from.
func (p *Photo) URL() string {
	return fmt.Sprintf("/img/photos/%s.jpg", p.ID)
}

// Tag marks a user as appearing in a photo
type Tag struct {
	PhotoID     string `json:"photoID"`
	GithubLogin string `json:"githubLogin"`
}

// PostPhotoInput is the client-supplied part of a new photo
type PostPhotoInput struct {
	Name        string        `json:"name" validate:"required,max=255"`
	Category    PhotoCategory `json:"category" validate:"required,category"`
	Description string        `json:"description" validate:"max=10000"`
}
