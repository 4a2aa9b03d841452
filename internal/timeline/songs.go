// Package timeline implements the music-timeline room engine: each turn a
// player hears a song and must slot it into their chronologically sorted
// timeline; a wrong placement opens the card up for the other players to
// steal.
package timeline

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
)

type Song struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Year    int    `json:"year"`
	Preview string `json:"preview,omitempty"`
}

// Catalog is the shared song pool. Draws are tracked per room through a
// used-set so the same song does not come up twice until the catalog is
// exhausted.
type Catalog struct {
	songs []Song
}

type catalogFile struct {
	Songs []Song `json:"songs"`
}

func LoadSongs(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file catalogFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if len(file.Songs) == 0 {
		return nil, errors.New("song catalog is empty")
	}
	return &Catalog{songs: file.Songs}, nil
}

func (c *Catalog) Len() int { return len(c.songs) }

// Draw picks a random song not yet in used, marking it used. When every song
// has been drawn the used-set is cleared first, so a draw always succeeds on
// a non-empty catalog.
func (c *Catalog) Draw(used map[string]bool) (Song, bool) {
	if len(c.songs) == 0 {
		return Song{}, false
	}
	fresh := make([]Song, 0, len(c.songs))
	for _, song := range c.songs {
		if !used[song.ID] {
			fresh = append(fresh, song)
		}
	}
	if len(fresh) == 0 {
		for id := range used {
			delete(used, id)
		}
		fresh = append(fresh, c.songs...)
	}
	song := fresh[rand.Intn(len(fresh))]
	used[song.ID] = true
	return song, true
}

// DefaultSongs is the built-in catalog used when no songs file is configured.
func DefaultSongs() *Catalog {
	return &Catalog{songs: []Song{
		{ID: "jailhouse-rock", Title: "Jailhouse Rock", Artist: "Elvis Presley", Year: 1957},
		{ID: "respect", Title: "Respect", Artist: "Aretha Franklin", Year: 1967},
		{ID: "superstition", Title: "Superstition", Artist: "Stevie Wonder", Year: 1972},
		{ID: "bohemian-rhapsody", Title: "Bohemian Rhapsody", Artist: "Queen", Year: 1975},
		{ID: "stayin-alive", Title: "Stayin' Alive", Artist: "Bee Gees", Year: 1977},
		{ID: "billie-jean", Title: "Billie Jean", Artist: "Michael Jackson", Year: 1983},
		{ID: "like-a-prayer", Title: "Like a Prayer", Artist: "Madonna", Year: 1989},
		{ID: "smells-like-teen-spirit", Title: "Smells Like Teen Spirit", Artist: "Nirvana", Year: 1991},
		{ID: "wonderwall", Title: "Wonderwall", Artist: "Oasis", Year: 1995},
		{ID: "my-heart-will-go-on", Title: "My Heart Will Go On", Artist: "Celine Dion", Year: 1997},
		{ID: "ms-jackson", Title: "Ms. Jackson", Artist: "OutKast", Year: 2000},
		{ID: "crazy-in-love", Title: "Crazy in Love", Artist: "Beyoncé", Year: 2003},
		{ID: "mr-brightside", Title: "Mr. Brightside", Artist: "The Killers", Year: 2004},
		{ID: "umbrella", Title: "Umbrella", Artist: "Rihanna", Year: 2007},
		{ID: "rolling-in-the-deep", Title: "Rolling in the Deep", Artist: "Adele", Year: 2010},
		{ID: "get-lucky", Title: "Get Lucky", Artist: "Daft Punk", Year: 2013},
		{ID: "uptown-funk", Title: "Uptown Funk", Artist: "Mark Ronson", Year: 2014},
		{ID: "shape-of-you", Title: "Shape of You", Artist: "Ed Sheeran", Year: 2017},
		{ID: "blinding-lights", Title: "Blinding Lights", Artist: "The Weeknd", Year: 2019},
		{ID: "as-it-was", Title: "As It Was", Artist: "Harry Styles", Year: 2022},
	}}
}
