package model

import (
	"strings"
	"time"
)

// Remote access scopes.
const (
	ScopeActivitiesUpdate = "/activities/update"
	ScopePersonUpdate     = "/person/update"
	ScopeReadLimited      = "/read-limited"
)

// Organisation is a member organisation. ClientID is the remote client identifier
// that marks entries this organisation wrote.
type Organisation struct {
	ID                   uint   `gorm:"primaryKey"`
	Name                 string `gorm:"size:255;not null"`
	City                 string `gorm:"size:100"`
	Region               string `gorm:"size:100"`
	Country              string `gorm:"size:2"`
	DisambiguatedID      string `gorm:"size:100"`
	DisambiguationSource string `gorm:"size:100"`
	ClientID             string `gorm:"size:100;index"`
	TechContactID        uint
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (Organisation) TableName() string { return "organisations" }

// User is a hub user. Tasks and invitations reference users by ID.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"size:255;index"`
	ORCID        string `gorm:"column:orcid;size:19;index"`
	FirstName    string `gorm:"size:100"`
	LastName     string `gorm:"size:100"`
	OrgID        uint   `gorm:"index"`
	Roles        Role
	Affiliations Affiliation
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }

// DisplayName joins the user's names, falling back to the email.
func (u User) DisplayName() string {
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Email
}

// Credential is a user's remote access token granted to one organisation.
type Credential struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"index;not null"`
	OrgID       uint   `gorm:"index;not null"`
	AccessToken string `gorm:"size:255"`
	Scopes      string `gorm:"size:255"`
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Credential) TableName() string { return "credentials" }

// HasScope reports whether the comma separated scope list contains scope.
func (c Credential) HasScope(scope string) bool {
	for _, s := range strings.FieldsFunc(c.Scopes, func(r rune) bool { return r == ',' || r == ' ' }) {
		if s == scope {
			return true
		}
	}
	return false
}

// Usable reports whether the credential holds a token with scope that has not expired at now.
func (c Credential) Usable(scope string, now time.Time) bool {
	if c.AccessToken == "" || !c.HasScope(scope) {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

// Invitation records one invitation e-mail sent to a person on behalf of an organisation.
type Invitation struct {
	ID           uint   `gorm:"primaryKey"`
	OrgID        uint   `gorm:"index;not null"`
	TaskID       uint   `gorm:"index"`
	Email        string `gorm:"size:255;index;not null"`
	TokenID      string `gorm:"size:64;uniqueIndex"`
	Affiliations Affiliation
	SentAt       time.Time
	CreatedBy    uint
}

func (Invitation) TableName() string { return "invitations" }
