package oauth

import (
	"encoding/json"
	"fmt"
)

// Profile is the provider-normalized user profile. The exchange proxy maps
// each provider's raw profile shape into this type so clients never deal
// with provider-specific field names.
type Profile struct {
	// ID is the provider's user identifier. Some providers use numeric
	// IDs; they are normalized to strings.
	ID string `json:"id"`

	// Email is the account email, when the granted scopes include it.
	Email string `json:"email,omitempty"`

	// DisplayName is the human-readable account name.
	DisplayName string `json:"display_name,omitempty"`

	// AvatarURL is the account picture, if any.
	AvatarURL string `json:"avatar_url,omitempty"`

	// Country is the account country code, if reported.
	Country string `json:"country,omitempty"`
}

// UnmarshalJSON tolerates numeric IDs, which some providers emit.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		Email       string          `json:"email"`
		DisplayName string          `json:"display_name"`
		AvatarURL   string          `json:"avatar_url"`
		Country     string          `json:"country"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse profile: %w", err)
	}

	if len(raw.ID) > 0 {
		var id string
		if err := json.Unmarshal(raw.ID, &id); err != nil {
			var num json.Number
			if err := json.Unmarshal(raw.ID, &num); err != nil {
				return fmt.Errorf("failed to parse profile id: %w", err)
			}
			id = num.String()
		}
		p.ID = id
	}
	p.Email = raw.Email
	p.DisplayName = raw.DisplayName
	p.AvatarURL = raw.AvatarURL
	p.Country = raw.Country
	return nil
}

// TokenResult is the exchange proxy's success response: the provider tokens
// plus the normalized profile fetched with the fresh access token.
type TokenResult struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    int      `json:"expires_in,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
	User         *Profile `json:"user,omitempty"`
}
