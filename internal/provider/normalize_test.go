package provider

import "testing"

func TestNormalizeProfile_Spotify(t *testing.T) {
	raw := []byte(`{
		"id": "wizzler",
		"email": "w@example.com",
		"display_name": "Wizzler",
		"country": "SE",
		"product": "premium",
		"images": [{"url": "https://img.example.com/a.jpg"}]
	}`)

	p, err := NormalizeProfile(Spotify, raw)
	if err != nil {
		t.Fatalf("NormalizeProfile() error = %v", err)
	}
	if p.ID != "wizzler" || p.Email != "w@example.com" || p.DisplayName != "Wizzler" {
		t.Errorf("profile = %+v", p)
	}
	if p.AvatarURL != "https://img.example.com/a.jpg" {
		t.Errorf("AvatarURL = %q", p.AvatarURL)
	}
	if p.Country != "SE" {
		t.Errorf("Country = %q", p.Country)
	}
}

func TestNormalizeProfile_Deezer(t *testing.T) {
	raw := []byte(`{
		"id": 2529,
		"name": "Daniel",
		"email": "d@example.com",
		"country": "FR",
		"picture": "https://img.example.com/small.jpg",
		"picture_medium": "https://img.example.com/med.jpg"
	}`)

	p, err := NormalizeProfile(Deezer, raw)
	if err != nil {
		t.Fatalf("NormalizeProfile() error = %v", err)
	}
	if p.ID != "2529" {
		t.Errorf("ID = %q, want numeric id as string", p.ID)
	}
	if p.DisplayName != "Daniel" {
		t.Errorf("DisplayName = %q", p.DisplayName)
	}
	if p.AvatarURL != "https://img.example.com/med.jpg" {
		t.Errorf("AvatarURL = %q", p.AvatarURL)
	}
}

func TestNormalizeProfile_Malformed(t *testing.T) {
	if _, err := NormalizeProfile(Spotify, []byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
