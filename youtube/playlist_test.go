package youtube

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

func TestSelectMusic(t *testing.T) {
	tests := []struct {
		name      string
		playlists []Playlist
		prefix    string
		want      []string
	}{
		{
			name: "sorted by title, non-music excluded",
			playlists: []Playlist{
				{ID: "b", Title: "music-chill"},
				{ID: "a", Title: "music-rock"},
				{ID: "c", Title: "podcast-talk"},
			},
			prefix: "music-",
			want:   []string{"b", "a"},
		},
		{
			name:      "prefix is case sensitive",
			playlists: []Playlist{{ID: "x", Title: "Music-Loud"}},
			prefix:    "music-",
			want:      []string{},
		},
		{
			name:      "empty input",
			playlists: nil,
			prefix:    "music-",
			want:      []string{},
		},
		{
			name: "no match",
			playlists: []Playlist{
				{ID: "1", Title: "holiday"},
				{ID: "2", Title: "musicless"},
				{ID: "3", Title: " music-leading-space"},
			},
			prefix: "music-",
			want:   []string{},
		},
		{
			name: "missing id dropped",
			playlists: []Playlist{
				{ID: "", Title: "music-a"},
				{ID: "k", Title: "music-b"},
			},
			prefix: "music-",
			want:   []string{"k"},
		},
		{
			name: "equal titles keep input order",
			playlists: []Playlist{
				{ID: "second", Title: "music-same"},
				{ID: "first", Title: "music-same"},
				{ID: "zero", Title: "music-a"},
			},
			prefix: "music-",
			want:   []string{"zero", "second", "first"},
		},
		{
			name: "byte-wise ordering puts uppercase first",
			playlists: []Playlist{
				{ID: "lower", Title: "music-b"},
				{ID: "upper", Title: "music-B"},
			},
			prefix: "music-",
			want:   []string{"upper", "lower"},
		},
		{
			name: "custom prefix",
			playlists: []Playlist{
				{ID: "1", Title: "mix-2"},
				{ID: "2", Title: "music-1"},
				{ID: "3", Title: "mix-1"},
			},
			prefix: "mix-",
			want:   []string{"3", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectMusic(tt.playlists, tt.prefix)
			if got == nil {
				t.Fatal("SelectMusic() returned nil, want empty slice")
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("SelectMusic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectMusicDoesNotModifyInput(t *testing.T) {
	playlists := []Playlist{
		{ID: "z", Title: "music-z"},
		{ID: "a", Title: "music-a"},
	}
	SelectMusic(playlists, DefaultTitlePrefix)

	if playlists[0].ID != "z" || playlists[1].ID != "a" {
		t.Errorf("input reordered: %+v", playlists)
	}
}

func randomPlaylists(r *rand.Rand, n int) []Playlist {
	prefixes := []string{"music-", "Music-", "podcast-", "music", "", "mus"}
	out := make([]Playlist, n)
	for i := range out {
		id := fmt.Sprintf("id-%d", i)
		if r.IntN(10) == 0 {
			id = ""
		}
		out[i] = Playlist{
			ID:    id,
			Title: prefixes[r.IntN(len(prefixes))] + fmt.Sprintf("%03d-%d", r.IntN(50), i),
		}
	}
	return out
}

func TestSelectMusicProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))

	for round := range 200 {
		input := randomPlaylists(r, r.IntN(40))
		got := SelectMusic(input, DefaultTitlePrefix)

		byID := make(map[string]Playlist, len(input))
		matching := 0
		for _, p := range input {
			if p.ID != "" {
				byID[p.ID] = p
			}
			if p.ID != "" && strings.HasPrefix(p.Title, DefaultTitlePrefix) {
				matching++
			}
		}

		if len(got) > len(input) {
			t.Fatalf("round %d: output longer than input", round)
		}
		if len(got) != matching {
			t.Fatalf("round %d: got %d ids, want %d", round, len(got), matching)
		}
		for i, id := range got {
			p, ok := byID[id]
			if !ok || !strings.HasPrefix(p.Title, DefaultTitlePrefix) {
				t.Fatalf("round %d: id %q does not map to a matching playlist", round, id)
			}
			if i > 0 && byID[got[i-1]].Title > p.Title {
				t.Fatalf("round %d: output not sorted at %d", round, i)
			}
		}

		shuffled := slices.Clone(input)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if again := SelectMusic(shuffled, DefaultTitlePrefix); !slices.Equal(again, got) {
			t.Fatalf("round %d: result depends on input order: %v vs %v", round, again, got)
		}
	}
}

func TestSortByTitle(t *testing.T) {
	playlists := []Playlist{{ID: "2", Title: "b"}, {ID: "1", Title: "a"}, {ID: "3", Title: "c"}}
	SortByTitle(playlists)

	var ids []string
	for _, p := range playlists {
		ids = append(ids, p.ID)
	}
	if !slices.Equal(ids, []string{"1", "2", "3"}) {
		t.Errorf("SortByTitle() order = %v", ids)
	}
}
