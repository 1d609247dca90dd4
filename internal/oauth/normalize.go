package oauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/model"
)

// GoogleProfile is the OpenID Connect claim set returned by Google,
// either inside the ID token or from the userinfo endpoint.
type GoogleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// GitHubProfile is the subset of the GitHub user resource we use. Emails
// is filled from the separate emails endpoint.
type GitHubProfile struct {
	ID        int64         `json:"id"`
	Login     string        `json:"login"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	AvatarURL string        `json:"avatar_url"`
	Emails    []GitHubEmail `json:"-"`
}

// GitHubEmail is one entry of the GitHub emails list.
type GitHubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// RawProfile is the provider payload before normalization. Exactly the
// field matching Provider is set; Google may be nil when no ID token was
// returned.
type RawProfile struct {
	Provider    model.Provider
	Google      *GoogleProfile
	GitHub      *GitHubProfile
	AccessToken string
}

// UserinfoFetcher retrieves the Google profile out of band.
type UserinfoFetcher interface {
	GoogleUserinfo(ctx context.Context, accessToken string) (GoogleProfile, error)
}

// NormalizeProfile converts a provider payload into the canonical profile.
// Only provider-verified addresses are accepted; a payload without one
// fails with BadRequest.
func NormalizeProfile(ctx context.Context, raw RawProfile, fetcher UserinfoFetcher) (model.OAuthProfile, error) {
	switch raw.Provider {
	case model.ProviderGoogle:
		return normalizeGoogle(ctx, raw, fetcher)
	case model.ProviderGitHub:
		return normalizeGitHub(raw)
	default:
		return model.OAuthProfile{}, apierror.NewErrOAuthFailed(fmt.Errorf("unsupported provider %q", raw.Provider))
	}
}

func normalizeGoogle(ctx context.Context, raw RawProfile, fetcher UserinfoFetcher) (model.OAuthProfile, error) {
	var p GoogleProfile
	if raw.Google != nil {
		p = *raw.Google
	}

	if p.Email == "" || p.Subject == "" {
		if fetcher == nil || raw.AccessToken == "" {
			return model.OAuthProfile{}, apierror.NewErrOAuthEmailMissing(string(model.ProviderGoogle))
		}
		info, err := fetcher.GoogleUserinfo(ctx, raw.AccessToken)
		if err != nil {
			return model.OAuthProfile{}, apierror.NewErrOAuthFailed(fmt.Errorf("google userinfo: %w", err))
		}
		p = mergeGoogle(p, info)
	}

	if p.Email == "" {
		return model.OAuthProfile{}, apierror.NewErrOAuthEmailMissing(string(model.ProviderGoogle))
	}
	if p.Subject == "" {
		return model.OAuthProfile{}, apierror.NewErrOAuthFailed(errors.New("google profile has no subject"))
	}
	if !p.EmailVerified {
		return model.OAuthProfile{}, apierror.NewErrOAuthEmailUnverified(string(model.ProviderGoogle))
	}

	first, last := p.GivenName, p.FamilyName
	if first == "" && last == "" {
		first, last = splitName(p.Name)
	}

	return model.OAuthProfile{
		ExternalID: p.Subject,
		Email:      p.Email,
		FirstName:  first,
		LastName:   last,
		AvatarURL:  p.Picture,
	}, nil
}

func normalizeGitHub(raw RawProfile) (model.OAuthProfile, error) {
	if raw.GitHub == nil || raw.GitHub.ID == 0 {
		return model.OAuthProfile{}, apierror.NewErrOAuthFailed(errors.New("github profile is empty"))
	}
	p := raw.GitHub

	email := pickGitHubEmail(p.Emails)
	if email == "" {
		return model.OAuthProfile{}, apierror.NewErrOAuthEmailMissing(string(model.ProviderGitHub))
	}

	name := p.Name
	if name == "" {
		name = p.Login
	}
	first, last := splitName(name)

	return model.OAuthProfile{
		ExternalID: strconv.FormatInt(p.ID, 10),
		Email:      email,
		FirstName:  first,
		LastName:   last,
		AvatarURL:  p.AvatarURL,
	}, nil
}

// pickGitHubEmail returns the primary verified address, else the first
// verified one. The public profile email carries no verification flag and
// is never used.
func pickGitHubEmail(emails []GitHubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified && e.Email != "" {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified && e.Email != "" {
			return e.Email
		}
	}
	return ""
}

func mergeGoogle(base, info GoogleProfile) GoogleProfile {
	if base.Subject == "" {
		base.Subject = info.Subject
	}
	if base.Email == "" {
		base.Email = info.Email
		base.EmailVerified = info.EmailVerified
	}
	if base.Name == "" {
		base.Name = info.Name
	}
	if base.GivenName == "" {
		base.GivenName = info.GivenName
	}
	if base.FamilyName == "" {
		base.FamilyName = info.FamilyName
	}
	if base.Picture == "" {
		base.Picture = info.Picture
	}
	return base
}

func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	first, last, _ := strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}
