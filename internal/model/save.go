package model

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adrg/xdg"
	"golang.org/x/text/unicode/norm"
)

// SaveFolderName is appended to every save directory.
const SaveFolderName = "LyricsMaster"

// DefaultSaveDir returns the directory used when Save is called with an empty
// directory: the user's documents directory plus SaveFolderName.
func DefaultSaveDir() string {
	return filepath.Join(xdg.UserDirs.Documents, SaveFolderName)
}

// SaveRoot resolves the directory that Save writes below.
// An empty dir selects DefaultSaveDir; any other dir gets SaveFolderName
// appended.
func SaveRoot(dir string) string {
	if dir == "" {
		return DefaultSaveDir()
	}
	return filepath.Join(dir, SaveFolderName)
}

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Normalize turns a title into a file-system friendly name: non-word
// characters are removed and runs of spaces or hyphens become one hyphen.
// Letters outside ASCII are kept in NFC form.
func Normalize(value string) string {
	value = norm.NFC.String(value)
	value = strings.TrimSpace(slugStrip.ReplaceAllString(value, ""))
	value = slugCollapse.ReplaceAllString(value, "-")
	if value == "" {
		return "untitled"
	}
	return value
}

// SongPath returns where s is written below root, before any suffix Save
// adds to tell apart titles that normalize alike.
func SongPath(root string, s Song) string {
	return filepath.Join(root, Normalize(s.Artist), Normalize(s.Album), Normalize(s.Title)+".txt")
}

// Save writes the song to dir/LyricsMaster/artist/album/title.txt.
// Songs without lyrics are skipped.
func (s Song) Save(dir string) error {
	return newSaver(SaveRoot(dir)).save(s)
}

// Save writes every song of the album that has lyrics.
func (a *Album) Save(dir string) error {
	return newSaver(SaveRoot(dir)).saveAlbum(a)
}

// Save writes every album of the discography.
func (d *Discography) Save(dir string) error {
	sv := newSaver(SaveRoot(dir))
	for _, a := range d.albums {
		if err := sv.saveAlbum(a); err != nil {
			return err
		}
	}
	return nil
}

// saver writes songs below root. Titles that normalize to a path already
// written by the same saver get a numeric suffix, so "Song?" and "Song!"
// end up in Song.txt and Song-2.txt.
type saver struct {
	root    string
	written map[string]bool
}

func newSaver(root string) *saver {
	return &saver{root: root, written: make(map[string]bool)}
}

func (sv *saver) saveAlbum(a *Album) error {
	for _, s := range a.songs {
		if err := sv.save(s); err != nil {
			return err
		}
	}
	return nil
}

func (sv *saver) uniquePath(s Song) string {
	path := SongPath(sv.root, s)
	base := strings.TrimSuffix(path, ".txt")
	for n := 2; sv.written[path]; n++ {
		path = fmt.Sprintf("%s-%d.txt", base, n)
	}
	sv.written[path] = true
	return path
}

func (sv *saver) save(s Song) error {
	if !s.HasLyrics() {
		return nil
	}

	path := sv.uniquePath(s)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create album directory: %w", err)
	}

	content := s.Lyrics
	if s.Writers != "" {
		content = strings.TrimRight(content, "\n") + "\n\nWriters: " + s.Writers + "\n"
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write lyrics for %q: %w", s.Title, err)
	}
	return nil
}
