package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

const defaultAvatarSize = 200

// GravatarURL returns the Gravatar image for an e-mail address. Addresses
// without a Gravatar get the "mystery person" placeholder.
func GravatarURL(email string, size int) string {
	if size <= 0 {
		size = defaultAvatarSize
	}
	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}

// AvatarOrGravatar keeps an explicit avatar and falls back to Gravatar.
func AvatarOrGravatar(avatarURL, email string) string {
	if strings.TrimSpace(avatarURL) != "" {
		return avatarURL
	}
	return GravatarURL(email, 0)
}
