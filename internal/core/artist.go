package core

// ArtistSummary is the part of an artist that list and search views hold.
type ArtistSummary struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	ImageURL string `json:"image,omitempty" yaml:"image,omitempty"`
}

// ArtistData is the full artist record required to add a favorite.
type ArtistData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Birthday    string `json:"birthday"`
	Deathday    string `json:"deathday"`
	Nationality string `json:"nationality"`
}
