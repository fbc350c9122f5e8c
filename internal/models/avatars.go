package models

import "math/rand/v2"

// DefaultAvatar is shown for accounts that never picked an avatar.
const DefaultAvatar = "/static/avatars/default-avatar.png"

// AvailableAvatars are the preset avatars users can choose from.
var AvailableAvatars = []string{
	"/static/avatars/avatar1.png",
	"/static/avatars/avatar2.png",
	"/static/avatars/avatar3.png",
	"/static/avatars/avatar4.png",
	"/static/avatars/avatar5.png",
	"/static/avatars/avatar6.png",
	"/static/avatars/avatar7.png",
	"/static/avatars/avatar8.png",
}

// RandomAvatar picks one of the preset avatars for a new account.
func RandomAvatar() string {
	return AvailableAvatars[rand.IntN(len(AvailableAvatars))]
}

// IsAvailableAvatar reports whether path is a preset avatar.
func IsAvailableAvatar(path string) bool {
	if path == DefaultAvatar {
		return true
	}
	for _, a := range AvailableAvatars {
		if a == path {
			return true
		}
	}
	return false
}
