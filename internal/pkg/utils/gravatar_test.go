package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGravatarURLNormalizesEmail(t *testing.T) {
	t.Parallel()

	a := GravatarURL(" Jane@City.Example ", 0)
	b := GravatarURL("jane@city.example", 200)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "https://www.gravatar.com/avatar/")
	assert.Contains(t, a, "s=200&d=mp")

	assert.Contains(t, GravatarURL("jane@city.example", 64), "s=64")
}

func TestAvatarOrGravatar(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://img.example/a.png", AvatarOrGravatar("https://img.example/a.png", "a@b.c"))
	assert.Equal(t, GravatarURL("a@b.c", 0), AvatarOrGravatar("  ", "a@b.c"))
}
