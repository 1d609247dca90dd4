package model

// OAuthProfile is the canonical identity returned by an OAuth provider.
type OAuthProfile struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
}
