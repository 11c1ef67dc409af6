package domain

import "time"

// User is the account record owned by the user store. Email is the key.
type User struct {
	Email        string    `json:"email" dynamodbav:"email"`
	ID           string    `json:"id" dynamodbav:"user_id"`
	PasswordHash string    `json:"password_hash" dynamodbav:"password_hash"`
	CustomerID   string    `json:"customer_id,omitempty" dynamodbav:"customer_id,omitempty"`
	Profile      *Profile  `json:"profile,omitempty" dynamodbav:"profile,omitempty"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Clone returns a deep copy so callers can't mutate records held by a store.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Profile = u.Profile.Clone()
	return &c
}

// Profile holds the denormalized dashboard fields. None of them are enforced by
// the store; the dashboard fills defaults for whatever is missing.
type Profile struct {
	Plan            string          `json:"plan,omitempty" dynamodbav:"plan,omitempty"`
	WebsiteProgress int             `json:"website_progress" dynamodbav:"website_progress"`
	Checklist       []ChecklistItem `json:"checklist,omitempty" dynamodbav:"checklist,omitempty"`
	Activity        []ActivityEntry `json:"activity,omitempty" dynamodbav:"activity,omitempty"`
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Checklist = append([]ChecklistItem(nil), p.Checklist...)
	c.Activity = append([]ActivityEntry(nil), p.Activity...)
	return &c
}

type ChecklistItem struct {
	Label string `json:"label" dynamodbav:"label"`
	Done  bool   `json:"done" dynamodbav:"done"`
}

type ActivityEntry struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Message   string    `json:"message" dynamodbav:"message"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
