package types

import "time"

type Pathway string

const (
	PathwayAscender   Pathway = "ascender"
	PathwayNeothinker Pathway = "neothinker"
	PathwayImmortal   Pathway = "immortal"
)

func (p Pathway) Valid() bool {
	switch p {
	case PathwayAscender, PathwayNeothinker, PathwayImmortal:
		return true
	}
	return false
}

type Profile struct {
	ID                  string    `db:"id" json:"id"`
	Email               *string   `db:"email" json:"email,omitempty"`
	FullName            *string   `db:"full_name" json:"full_name"`
	Username            *string   `db:"username" json:"username"`
	Bio                 *string   `db:"bio" json:"bio"`
	AvatarURL           *string   `db:"avatar_url" json:"avatar_url"`
	Pathway             *Pathway  `db:"pathway" json:"pathway"`
	OnboardingCompleted bool      `db:"onboarding_completed" json:"onboarding_completed"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	FullName  *string  `json:"full_name"`
	Username  *string  `json:"username"`
	Bio       *string  `json:"bio"`
	Pathway   *Pathway `json:"pathway"`
	AvatarURL *string  `json:"-"`
}

// AccountState is derived from the auth user and the profile row.
type AccountState string

const (
	AccountUnverified           AccountState = "unverified"
	AccountOnboardingIncomplete AccountState = "onboarding_incomplete"
	AccountActive               AccountState = "active"
)

func ResolveAccountState(emailConfirmed bool, profile *Profile) AccountState {
	if !emailConfirmed {
		return AccountUnverified
	}
	if profile == nil || !profile.OnboardingCompleted {
		return AccountOnboardingIncomplete
	}
	return AccountActive
}
