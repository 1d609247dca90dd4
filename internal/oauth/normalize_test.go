package oauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/starter-api/internal/apierror"
	"github.com/dtroode/starter-api/internal/model"
)

type stubFetcher struct {
	profile GoogleProfile
	err     error
	calls   int
}

func (s *stubFetcher) GoogleUserinfo(context.Context, string) (GoogleProfile, error) {
	s.calls++
	return s.profile, s.err
}

func TestNormalizeProfile_Google(t *testing.T) {
	ctx := context.Background()

	t.Run("id token claims", func(t *testing.T) {
		fetcher := &stubFetcher{}
		got, err := NormalizeProfile(ctx, RawProfile{
			Provider: model.ProviderGoogle,
			Google: &GoogleProfile{
				Subject:       "g-1",
				Email:         "ann@gmail.com",
				EmailVerified: true,
				GivenName:     "Ann",
				FamilyName:    "Lee",
				Picture:       "https://pics/ann",
			},
			AccessToken: "at",
		}, fetcher)
		require.NoError(t, err)
		assert.Equal(t, model.OAuthProfile{
			ExternalID: "g-1",
			Email:      "ann@gmail.com",
			FirstName:  "Ann",
			LastName:   "Lee",
			AvatarURL:  "https://pics/ann",
		}, got)
		assert.Zero(t, fetcher.calls)
	})

	t.Run("userinfo fallback", func(t *testing.T) {
		fetcher := &stubFetcher{profile: GoogleProfile{Subject: "g-2", Email: "bob@gmail.com", EmailVerified: true, Name: "Bob Ray Smith"}}
		got, err := NormalizeProfile(ctx, RawProfile{Provider: model.ProviderGoogle, AccessToken: "at"}, fetcher)
		require.NoError(t, err)
		assert.Equal(t, "g-2", got.ExternalID)
		assert.Equal(t, "bob@gmail.com", got.Email)
		assert.Equal(t, "Bob", got.FirstName)
		assert.Equal(t, "Ray Smith", got.LastName)
		assert.Equal(t, 1, fetcher.calls)
	})

	t.Run("no email anywhere", func(t *testing.T) {
		fetcher := &stubFetcher{profile: GoogleProfile{Subject: "g-3"}}
		_, err := NormalizeProfile(ctx, RawProfile{Provider: model.ProviderGoogle, AccessToken: "at"}, fetcher)
		apiErr, ok := apierror.From(err)
		require.True(t, ok)
		assert.Equal(t, apierror.KindBadRequest, apiErr.Kind)
		assert.Equal(t, "Email not provided by google", apiErr.Message)
	})

	t.Run("unverified email", func(t *testing.T) {
		fetcher := &stubFetcher{}
		_, err := NormalizeProfile(ctx, RawProfile{
			Provider:    model.ProviderGoogle,
			Google:      &GoogleProfile{Subject: "g-4", Email: "someone@corp.io"},
			AccessToken: "at",
		}, fetcher)
		apiErr, ok := apierror.From(err)
		require.True(t, ok)
		assert.Equal(t, apierror.KindBadRequest, apiErr.Kind)
		assert.Equal(t, "Email not verified by google", apiErr.Message)
		assert.Zero(t, fetcher.calls)
	})

	t.Run("unverified userinfo email", func(t *testing.T) {
		fetcher := &stubFetcher{profile: GoogleProfile{Subject: "g-5", Email: "someone@corp.io"}}
		_, err := NormalizeProfile(ctx, RawProfile{Provider: model.ProviderGoogle, AccessToken: "at"}, fetcher)
		require.True(t, apierror.IsKind(err, apierror.KindBadRequest))
		assert.Equal(t, 1, fetcher.calls)
	})

	t.Run("no fetcher", func(t *testing.T) {
		_, err := NormalizeProfile(ctx, RawProfile{Provider: model.ProviderGoogle}, nil)
		require.True(t, apierror.IsKind(err, apierror.KindBadRequest))
	})

	t.Run("userinfo failure", func(t *testing.T) {
		fetcher := &stubFetcher{err: assert.AnError}
		_, err := NormalizeProfile(ctx, RawProfile{Provider: model.ProviderGoogle, AccessToken: "at"}, fetcher)
		require.True(t, apierror.IsKind(err, apierror.KindBadRequest))
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestNormalizeProfile_GitHub(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		profile   *GitHubProfile
		wantEmail string
		wantFirst string
		wantLast  string
		wantKind  apierror.Kind
		wantErr   bool
	}{
		{
			name: "primary verified wins",
			profile: &GitHubProfile{ID: 7, Name: "Octo Cat", Emails: []GitHubEmail{
				{Email: "other@x.io", Verified: true},
				{Email: "main@x.io", Primary: true, Verified: true},
			}},
			wantEmail: "main@x.io",
			wantFirst: "Octo",
			wantLast:  "Cat",
		},
		{
			name: "first verified",
			profile: &GitHubProfile{ID: 7, Login: "octo", Emails: []GitHubEmail{
				{Email: "unverified@x.io"},
				{Email: "verified@x.io", Verified: true},
			}},
			wantEmail: "verified@x.io",
			wantFirst: "octo",
		},
		{
			name:     "public profile email is not trusted",
			profile:  &GitHubProfile{ID: 7, Name: "Solo", Email: "public@x.io"},
			wantErr:  true,
			wantKind: apierror.KindBadRequest,
		},
		{
			name: "unverified primary only",
			profile: &GitHubProfile{ID: 7, Login: "mallory", Email: "victim@x.io", Emails: []GitHubEmail{
				{Email: "victim@x.io", Primary: true},
				{Email: "other@x.io"},
			}},
			wantErr:  true,
			wantKind: apierror.KindBadRequest,
		},
		{
			name:     "no email",
			profile:  &GitHubProfile{ID: 7, Login: "ghost"},
			wantErr:  true,
			wantKind: apierror.KindBadRequest,
		},
		{
			name:     "empty profile",
			profile:  nil,
			wantErr:  true,
			wantKind: apierror.KindBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeProfile(ctx, RawProfile{Provider: model.ProviderGitHub, GitHub: tt.profile}, nil)
			if tt.wantErr {
				require.True(t, apierror.IsKind(err, tt.wantKind))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "7", got.ExternalID)
			assert.Equal(t, tt.wantEmail, got.Email)
			assert.Equal(t, tt.wantFirst, got.FirstName)
			assert.Equal(t, tt.wantLast, got.LastName)
		})
	}
}

func TestNormalizeProfile_UnknownProvider(t *testing.T) {
	_, err := NormalizeProfile(context.Background(), RawProfile{Provider: model.ProviderLocal}, nil)
	require.Error(t, err)
}
