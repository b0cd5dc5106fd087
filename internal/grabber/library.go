package grabber

import (
	"context"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/packtgrab/packtgrab/internal/markup"
)

// listedFormats are reported per entry by the library listing.
var listedFormats = []string{"pdf", "epub", "mobi"}

// Library returns every entry of the owned-books listing in page order.
// The session must be logged in.
func (g *Grabber) Library(ctx context.Context) ([]markup.Book, error) {
	page, err := g.sess.Get(ctx, g.MyBooksURL())
	if err != nil {
		return nil, err
	}
	return markup.OwnedBooks(page.Body)
}

// LibraryEntry is one row of the library export.
type LibraryEntry struct {
	ID      string `csv:"id"`
	Title   string `csv:"title"`
	Formats string `csv:"formats"`
}

// Entries summarizes books for display or export.
func Entries(books []markup.Book) []LibraryEntry {
	out := make([]LibraryEntry, 0, len(books))
	for _, b := range books {
		var formats []string
		for _, f := range listedFormats {
			if _, ok := b.Link(f); ok {
				formats = append(formats, f)
			}
		}
		out = append(out, LibraryEntry{ID: b.ID, Title: b.Title, Formats: strings.Join(formats, " ")})
	}
	return out
}

// WriteCSV writes entries with a header row.
func WriteCSV(w io.Writer, entries []LibraryEntry) error {
	return gocsv.Marshal(entries, w)
}
