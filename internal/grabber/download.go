package grabber

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/internal/markup"
	"github.com/packtgrab/packtgrab/internal/metrics"
	"github.com/packtgrab/packtgrab/internal/upload"
)

// DownloadRequest describes one download stage.
type DownloadRequest struct {
	// Count caps the number of listing entries considered.
	Count  int
	Format common.BookFormat
	Dir    string
	// Uploader is optional; each downloaded file is handed to it.
	Uploader  upload.Uploader
	UploadDir string
}

// DownloadResult counts what happened to the selected entries.
type DownloadResult struct {
	Selected   int
	Downloaded []string
	Skipped    int
	Failed     int
	Uploaded   int
}

// Download fetches up to req.Count owned books in listing order. Entries
// lacking the requested format are skipped; per-book download and upload
// failures are logged and do not stop the loop. An error is returned only
// when the listing itself cannot be read.
func (g *Grabber) Download(ctx context.Context, req DownloadRequest) (res DownloadResult, err error) {
	defer g.observe(metrics.StageDownload, time.Now(), &err)

	books, err := g.Library(ctx)
	if err != nil {
		return res, err
	}
	books = selectBooks(books, req.Count)
	res.Selected = len(books)

	if err := g.fs.MkdirAll(req.Dir, 0o755); err != nil {
		return res, fmt.Errorf("create download directory: %w", err)
	}

	format := string(req.Format)
	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		g.log.Info("Downloading Book %s: %s", b.ID, b.Title)
		link, ok := b.Link(format)
		if !ok {
			g.log.Warning("%s for book %s doesn't exist, skipping", format, b.ID)
			g.metrics.Stage(metrics.StageDownload, metrics.ResultSkipped)
			res.Skipped++
			continue
		}

		local := filepath.Join(req.Dir, FileName(b.Title, format))
		if err := g.fetch(ctx, link, local); err != nil {
			g.log.Error("Download of book %s failed: %v", b.ID, err)
			res.Failed++
			continue
		}
		res.Downloaded = append(res.Downloaded, local)

		if req.Uploader == nil {
			continue
		}
		start := time.Now()
		err := req.Uploader.Upload(ctx, local, req.UploadDir)
		g.metrics.Observe(metrics.StageUpload, start, err)
		if err != nil {
			g.log.Error("Upload of %s failed: %v", local, err)
			continue
		}
		g.log.Info("Uploaded %s to %s", filepath.Base(local), req.Uploader.Target())
		res.Uploaded++
	}
	return res, nil
}

// selectBooks keeps the first min(n, len(books)) entries.
func selectBooks(books []markup.Book, n int) []markup.Book {
	if n < 0 {
		n = 0
	}
	if n < len(books) {
		return books[:n]
	}
	return books
}

// fetch streams link into local. A failed transfer leaves the partial file.
func (g *Grabber) fetch(ctx context.Context, link, local string) error {
	target, err := g.resolve(link)
	if err != nil {
		return err
	}
	resp, err := g.sess.Stream(ctx, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := g.fs.Create(local)
	if err != nil {
		return err
	}

	var body io.Reader = resp.Body
	if g.progress != nil {
		tracked := g.progress.Track(filepath.Base(local), resp.ContentLength, resp.Body)
		defer tracked.Close()
		body = tracked
	}

	n, err := io.Copy(f, body)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	g.metrics.Book(n)
	return nil
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")

// FileName is the local name for a book: "<title>.<format>", with path
// separators in the title replaced.
func FileName(title, format string) string {
	return fileNameReplacer.Replace(title) + "." + format
}
