package provider

// Built-in provider names.
const (
	Spotify = "spotify"
	Deezer  = "deezer"
)

// SpotifyConfig returns the default Spotify provider config (PKCE flow).
// The client ID comes from configuration; everything else is fixed by the
// provider.
func SpotifyConfig(clientID string, scopes []string) *Config {
	if len(scopes) == 0 {
		scopes = []string{"user-read-private", "user-read-email"}
	}
	return &Config{
		Name:                  Spotify,
		Flow:                  FlowPKCE,
		AuthorizationEndpoint: "https://accounts.spotify.com/authorize",
		ProfileEndpoint:       "https://api.spotify.com/v1/me",
		TokenExchangePath:     "/api/spotify/token",
		ClientID:              clientID,
		Scopes:                scopes,
		clientIDParam:         "client_id",
		scopeParam:            "scope",
		scopeSep:              " ",
	}
}

// DeezerConfig returns the default Deezer provider config (implicit flow).
// Deezer names its parameters app_id and perms, and joins permissions with
// commas.
func DeezerConfig(appID string, perms []string) *Config {
	if len(perms) == 0 {
		perms = []string{"basic_access", "email"}
	}
	return &Config{
		Name:                  Deezer,
		Flow:                  FlowImplicit,
		AuthorizationEndpoint: "https://connect.deezer.com/oauth/auth.php",
		ProfileEndpoint:       "https://api.deezer.com/user/me",
		TokenExchangePath:     "/api/deezer/token",
		ClientID:              appID,
		Scopes:                perms,
		clientIDParam:         "app_id",
		scopeParam:            "perms",
		scopeSep:              ",",
	}
}
