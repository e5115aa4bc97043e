package oauth

import (
	"testing"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
)

func TestToIdentityUser(t *testing.T) {
	u := ToIdentityUser(goth.User{
		Provider:  "github",
		UserID:    "4711",
		Email:     "dev@example.com",
		Name:      "",
		NickName:  "octo",
		AvatarURL: "https://avatars.example/4711",
	})

	assert.Equal(t, "github", u.Provider)
	assert.Equal(t, "4711", u.UserID)
	assert.Equal(t, "octo", u.NickName)
	assert.Equal(t, "https://avatars.example/4711", u.AvatarURL)
}
