package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/passtheaux/internal/shared"
	"golang.org/x/oauth2"
)

// Credential is the signed-in user's session as handed to the pipeline by the auth collaborator.
//
// It is read-only for the duration of a run and never refreshed.
type Credential struct {
	SubjectID   string
	AccessToken string
	Expiry      time.Time // zero means unknown
}

// Token converts the credential to an [oauth2.Token] for setting the Authorization header.
func (c Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: c.AccessToken,
		TokenType:   "Bearer",
		Expiry:      c.Expiry,
	}
}

// ValidateToken checks the bearer token alone, for calls that don't act on behalf of a subject.
func (c Credential) ValidateToken() error {
	if c.AccessToken == "" {
		return fmt.Errorf("%w: access token is empty", shared.ErrMissingCredentials)
	}
	if !c.Token().Valid() {
		return fmt.Errorf("%w: expired at %s", shared.ErrTokenExpired, c.Expiry.Format(time.RFC3339))
	}
	return nil
}

// Validate checks that both the subject and a live token are present.
func (c Credential) Validate() error {
	if c.SubjectID == "" {
		return fmt.Errorf("%w: subject id is empty", shared.ErrMissingCredentials)
	}
	return c.ValidateToken()
}
