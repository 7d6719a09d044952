package provider

import (
	"encoding/json"
	"fmt"

	"tunelink/pkg/oauth"
)

// NormalizeProfile maps a provider's raw profile payload into the shared
// normalized shape. Unknown providers fall back to decoding the normalized
// shape directly.
func NormalizeProfile(providerName string, raw []byte) (*oauth.Profile, error) {
	switch providerName {
	case Spotify:
		return normalizeSpotifyProfile(raw)
	case Deezer:
		return normalizeDeezerProfile(raw)
	default:
		var p oauth.Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s profile: %w", providerName, err)
		}
		return &p, nil
	}
}

func normalizeSpotifyProfile(raw []byte) (*oauth.Profile, error) {
	var sp struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Country     string `json:"country"`
		Images      []struct {
			URL string `json:"url"`
		} `json:"images"`
	}
	if err := json.Unmarshal(raw, &sp); err != nil {
		return nil, fmt.Errorf("failed to parse spotify profile: %w", err)
	}

	profile := &oauth.Profile{
		ID:          sp.ID,
		Email:       sp.Email,
		DisplayName: sp.DisplayName,
		Country:     sp.Country,
	}
	if len(sp.Images) > 0 {
		profile.AvatarURL = sp.Images[0].URL
	}
	return profile, nil
}

func normalizeDeezerProfile(raw []byte) (*oauth.Profile, error) {
	var dz struct {
		ID            json.Number `json:"id"`
		Name          string      `json:"name"`
		Email         string      `json:"email"`
		Country       string      `json:"country"`
		PictureMedium string      `json:"picture_medium"`
		Picture       string      `json:"picture"`
	}
	if err := json.Unmarshal(raw, &dz); err != nil {
		return nil, fmt.Errorf("failed to parse deezer profile: %w", err)
	}

	profile := &oauth.Profile{
		ID:          dz.ID.String(),
		Email:       dz.Email,
		DisplayName: dz.Name,
		Country:     dz.Country,
		AvatarURL:   dz.PictureMedium,
	}
	if profile.AvatarURL == "" {
		profile.AvatarURL = dz.Picture
	}
	return profile, nil
}
