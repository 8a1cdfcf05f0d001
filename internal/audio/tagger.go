package audio

import (
	"fmt"
	"os"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/songdl/internal/models"
)

// Tagger writes ID3 metadata from a [models.CatalogItem] into an MP3 file.
type Tagger struct{}

// NewTagger creates a Tagger.
func NewTagger() *Tagger {
	return &Tagger{}
}

// Tag sets title, artist and album on the file at path, keeping other frames.
func (t *Tagger) Tag(path string, item models.CatalogItem) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("tag %s: %w", path, err)
		}
		return fmt.Errorf("failed to open tags: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(item.Title)
	tag.SetArtist(item.Artist)
	if item.Album != "" {
		tag.SetAlbum(item.Album)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}
