package domain

// Video is a third-party search result proxied to clients unchanged.
type Video struct {
	ID        string
	Title     string
	Channel   string
	URL       string
	Thumbnail string
	Duration  string
}
