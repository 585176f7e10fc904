package catalogstub

import (
	"time"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/remote"
)

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func unixPtr(y int, m time.Month) *int64 {
	ts := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).Unix()
	return &ts
}

// DefaultFixtures is a small catalog spanning a few publication years.
func DefaultFixtures() Fixtures {
	return Fixtures{
		Books: []remote.BookItem{
			{
				ID:                   "solo-leveling",
				Title:                strPtr("Solo Leveling"),
				Image:                strPtr("https://covers.example.com/solo-leveling.jpg"),
				Score:                floatPtr(9.1),
				Popularity:           intPtr(1),
				PublishedChapterDate: unixPtr(2018, time.March),
			},
			{
				ID:                   "omniscient-reader",
				Title:                strPtr("Omniscient Reader"),
				Image:                strPtr("https://covers.example.com/omniscient-reader.jpg"),
				Score:                floatPtr(8.9),
				Popularity:           intPtr(2),
				PublishedChapterDate: unixPtr(2020, time.May),
			},
			{
				ID:                   "tower-of-god",
				Title:                strPtr("Tower of God"),
				Image:                strPtr("https://covers.example.com/tower-of-god.jpg"),
				Score:                floatPtr(8.7),
				Popularity:           intPtr(3),
				PublishedChapterDate: unixPtr(2010, time.June),
			},
			{
				ID:                   "the-beginning-after-the-end",
				Title:                strPtr("The Beginning After the End"),
				Score:                floatPtr(8.8),
				Popularity:           intPtr(4),
				PublishedChapterDate: unixPtr(2018, time.July),
			},
		},
		Countries: remote.CountryResponse{Data: map[string]remote.Country{
			"IN": {Country: "India", Region: "Asia"},
			"FR": {Country: "France", Region: "Europe"},
			"BR": {Country: "Brazil", Region: "South America"},
			"KE": {Country: "Kenya", Region: "Africa"},
		}},
		IP: remote.IPInfo{Country: "India"},
	}
}
