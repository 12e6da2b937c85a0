package guide

import "time"

// Session is the logged-in platform session. The three fields are the
// only parts of the login response the API calls need, and they are
// what gets persisted in the auth cache tier.
type Session struct {
	LocationID string `json:"locationId"`
	OESPToken  string `json:"oespToken"`
	Username   string `json:"username"`
}

// Valid reports whether the session carries enough to authenticate.
func (s *Session) Valid() bool {
	return s != nil && s.OESPToken != "" && s.Username != ""
}

// Program is one scheduled programme on a station.
type Program struct {
	Title          string    `json:"title"`
	SecondaryTitle string    `json:"secondary_title,omitempty"`
	Description    string    `json:"description,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// Current returns the programme airing at the given instant.
func Current(programs []Program, now time.Time) (Program, bool) {
	for _, p := range programs {
		if !p.Start.After(now) && p.End.After(now) {
			return p, true
		}
	}
	return Program{}, false
}

// Wire types for the platform API responses.

type authDetailsResponse struct {
	Session struct {
		State            string `json:"state"`
		AuthorizationURI string `json:"authorizationUri"`
		ValidityToken    string `json:"validityToken"`
	} `json:"session"`
}

type reauthorizeResponse struct {
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
}

type channelsResponse struct {
	Channels []apiChannel `json:"channels"`
}

type apiChannel struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	ChannelNumber    int           `json:"channelNumber"`
	StationSchedules []apiSchedule `json:"stationSchedules"`
	SubChannels      []apiChannel  `json:"subChannels"`
}

type apiSchedule struct {
	Station apiStation `json:"station"`
}

type apiStation struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	IsHD  bool   `json:"isHd"`
}

type listingsResponse struct {
	Listings []apiListing `json:"listings"`
}

type apiListing struct {
	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`
	Program   struct {
		Title          string `json:"title"`
		SecondaryTitle string `json:"secondaryTitle"`
		Description    string `json:"description"`
	} `json:"program"`
}
