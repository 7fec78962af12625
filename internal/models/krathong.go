package models

import "time"

type TeamMember struct {
	Name       string `json:"name" binding:"required,notblank,max=80"`
	Email      string `json:"email" binding:"required,email"`
	Department string `json:"department,omitempty" binding:"max=80"`
}

// Krathong is a contest entry. Images and members are fixed at registration;
// only Score, Votes and LastVotedAt change afterwards.
type Krathong struct {
	ID               string       `json:"id" mapstructure:"id"`
	Name             string       `json:"name" mapstructure:"name"`
	KrathongImageURL string       `json:"krathongImageUrl" mapstructure:"krathong_image_url"`
	TeamImageURL     string       `json:"teamImageUrl" mapstructure:"team_image_url"`
	Score            int64        `json:"score" mapstructure:"-"`
	Votes            int64        `json:"votes" mapstructure:"-"`
	Members          []TeamMember `json:"members" mapstructure:"-"`
	CreatedAt        time.Time    `json:"createdAt,omitempty" mapstructure:"-"`
	CreatedBy        string       `json:"createdBy,omitempty" mapstructure:"created_by"`
	CreatedByEmail   string       `json:"createdByEmail,omitempty" mapstructure:"created_by_email"`
	LastVotedAt      *time.Time   `json:"lastVotedAt,omitempty" mapstructure:"-"`
}

// HasMember reports whether email belongs to one of the entry's members.
func (k Krathong) HasMember(email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	for _, m := range k.Members {
		if NormalizeEmail(m.Email) == email {
			return true
		}
	}
	return false
}

type RegisterRequest struct {
	Name             string       `json:"name" binding:"required,notblank,max=80"`
	KrathongImageURL string       `json:"krathongImageUrl" binding:"required"`
	TeamImageURL     string       `json:"teamImageUrl" binding:"required"`
	Members          []TeamMember `json:"members" binding:"required,dive"`
}
