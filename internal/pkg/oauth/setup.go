package oauth

import (
	"strings"
	"time"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/smartcity/civicdash/internal/pkg/env"
	"github.com/smartcity/civicdash/internal/pkg/identity"
	"github.com/smartcity/civicdash/internal/pkg/session"
)

// Setup registers the providers that have credentials configured and keeps
// OAuth state in Redis. Returns the names of the enabled providers.
func Setup() []string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	var providers []goth.Provider
	if key := env.GetEnv("GOOGLE_KEY", ""); key != "" {
		providers = append(providers, google.New(
			key,
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/auth/google/callback",
			"email", "profile",
		))
	}
	if key := env.GetEnv("GITHUB_KEY", ""); key != "" {
		providers = append(providers, github.New(
			key,
			env.GetEnv("GITHUB_SECRET", ""),
			base+"/auth/github/callback",
			"read:user", "user:email",
		))
	}
	goth.UseProviders(providers...)

	gothfiber.SessionStore = session.NewStore(gothic.SessionName, session.OAuthStateDB, 15*time.Minute)

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	return names
}

// ToIdentityUser maps a goth user onto the provider-neutral login input.
func ToIdentityUser(u goth.User) identity.OAuthUser {
	return identity.OAuthUser{
		Provider:  u.Provider,
		UserID:    u.UserID,
		Email:     u.Email,
		Name:      u.Name,
		NickName:  u.NickName,
		AvatarURL: u.AvatarURL,
	}
}
