package grabber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/internal/captcha"
	"github.com/packtgrab/packtgrab/internal/markup"
	"github.com/packtgrab/packtgrab/internal/session"
	"github.com/packtgrab/packtgrab/pkg/config"
	"github.com/spf13/afero"
)

func TestLogin(t *testing.T) {
	h := newHarness(t, fullConfig())
	if err := h.g.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	u, _ := url.Parse(h.srv.URL)
	if len(h.sess.Cookies(u)) == 0 {
		t.Error("session cookie not stored in jar")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	cfg := fullConfig()
	cfg.Pass = "wrong"
	h := newHarness(t, cfg)
	if err := h.g.Login(context.Background()); !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
}

func TestLogin_MissingCredentials(t *testing.T) {
	h := newHarness(t, &config.Config{Name: testUser})
	err := h.g.Login(context.Background())
	if !errors.Is(err, config.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	if h.site.count("GET /login") != 0 {
		t.Error("login page fetched without credentials")
	}
}

func TestLogin_FormMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form id="other"></form></body></html>`)
	}))
	defer srv.Close()
	sess, _ := session.New(session.Options{})
	g, err := New(Options{BaseURL: srv.URL, Session: sess, Config: fullConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Login(context.Background()); !errors.Is(err, markup.ErrNotFound) {
		t.Fatalf("expected markup.ErrNotFound, got %v", err)
	}
}

// The outcome depends on the final URL only, whatever the page says.
func TestLogin_OutcomeByFinalURL(t *testing.T) {
	tests := []struct {
		name     string
		redirect string
		wantErr  bool
	}{
		{"account area", "/account/dashboard", false},
		{"marker in query", "/welcome?from=account", false},
		{"back to login", "/login?error=1", true},
		{"home page", "/", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPost {
					http.Redirect(w, r, tt.redirect, http.StatusFound)
					return
				}
				fmt.Fprint(w, `<form id="packt-v3-account-login-form">
<input name="form_build_id" value="b"><input name="form_id" value="f"></form>`)
			})
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "Login failed, please try again")
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			sess, _ := session.New(session.Options{})
			g, _ := New(Options{BaseURL: srv.URL, Session: sess, Config: fullConfig()})
			err := g.Login(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Login() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClaim(t *testing.T) {
	h := newHarness(t, fullConfig())
	ctx := context.Background()
	if err := h.g.Login(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.g.Claim(ctx); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if len(h.solver.tasks) != 1 {
		t.Fatalf("solver called %d times", len(h.solver.tasks))
	}
	task := h.solver.tasks[0]
	if task.WebsiteKey != testSiteKey || task.WebsiteURL != h.srv.URL+"/packt/offers/free-learning" {
		t.Errorf("task = %+v", task)
	}
	if len(h.site.claims) != 1 || h.site.claims[0] != testToken {
		t.Errorf("claims posted = %v", h.site.claims)
	}
}

func TestClaim_Rejected(t *testing.T) {
	h := newHarness(t, fullConfig())
	h.site.claimLands = false
	ctx := context.Background()
	if err := h.g.Login(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.g.Claim(ctx); !errors.Is(err, ErrClaimFailed) {
		t.Fatalf("expected ErrClaimFailed, got %v", err)
	}
}

func TestClaim_SolverTimeout(t *testing.T) {
	h := newHarness(t, fullConfig())
	h.solver.err = fmt.Errorf("%w: task 7", captcha.ErrSolverTimeout)
	ctx := context.Background()
	if err := h.g.Login(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.g.Claim(ctx); !errors.Is(err, captcha.ErrSolverTimeout) {
		t.Fatalf("expected ErrSolverTimeout, got %v", err)
	}
	if len(h.site.claims) != 0 {
		t.Error("claim posted without a token")
	}
}

func TestClaim_MissingAntiCaptchaKey(t *testing.T) {
	cfg := fullConfig()
	cfg.AntiCaptcha = ""
	h := newHarness(t, cfg)
	h.g.solver = nil
	err := h.g.Claim(context.Background())
	var mk *config.MissingKeyError
	if !errors.As(err, &mk) || mk.Key != config.KeyAntiCaptcha {
		t.Fatalf("expected missing anti-captcha key, got %v", err)
	}
}

func TestDownload_SelectsMinOfRequestedAndAvailable(t *testing.T) {
	tests := []struct {
		n    int
		want []string
	}{
		{0, nil},
		{1, []string{"Mastering Go.pdf"}},
		{2, []string{"Mastering Go.pdf", "Learning Kubernetes.pdf"}},
		{10, []string{"Mastering Go.pdf", "Learning Kubernetes.pdf"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			h := newHarness(t, fullConfig())
			ctx := context.Background()
			if err := h.g.Login(ctx); err != nil {
				t.Fatal(err)
			}
			res, err := h.g.Download(ctx, DownloadRequest{Count: tt.n, Format: common.FormatPDF, Dir: "/books"})
			if err != nil {
				t.Fatalf("Download: %v", err)
			}
			wantSelected := tt.n
			if wantSelected > 3 {
				wantSelected = 3
			}
			if res.Selected != wantSelected {
				t.Errorf("Selected = %d, want %d", res.Selected, wantSelected)
			}
			if len(res.Downloaded) != len(tt.want) {
				t.Fatalf("Downloaded = %v, want %v", res.Downloaded, tt.want)
			}
			for i, name := range tt.want {
				if res.Downloaded[i] != filepath.Join("/books", name) {
					t.Errorf("Downloaded[%d] = %q, want %q", i, res.Downloaded[i], name)
				}
			}
		})
	}
}

func TestDownload_SkipsMissingFormat(t *testing.T) {
	h := newHarness(t, fullConfig())
	ctx := context.Background()
	if err := h.g.Login(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := h.g.Download(ctx, DownloadRequest{Count: 3, Format: common.FormatEPUB, Dir: "/books"})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	want := []string{"/books/Mastering Go.epub", "/books/Python Data Science.epub"}
	if strings.Join(res.Downloaded, ",") != strings.Join(want, ",") {
		t.Errorf("Downloaded = %v, want %v", res.Downloaded, want)
	}
	if len(h.log.WarningCalls) != 1 || !strings.Contains(h.log.WarningCalls[0], "19877") {
		t.Errorf("warnings = %v", h.log.WarningCalls)
	}
	data, err := afero.ReadFile(h.fs, "/books/Mastering Go.epub")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content of /ebook_download/21430/epub" {
		t.Errorf("file content = %q", data)
	}
}

func TestDownload_FailedItemDoesNotStopLoop(t *testing.T) {
	h := newHarness(t, fullConfig())
	h.site.missing["/ebook_download/21430/pdf"] = true
	ctx := context.Background()
	if err := h.g.Login(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := h.g.Download(ctx, DownloadRequest{Count: 2, Format: common.FormatPDF, Dir: "/books"})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Failed != 1 || len(res.Downloaded) != 1 || res.Downloaded[0] != "/books/Learning Kubernetes.pdf" {
		t.Errorf("result = %+v", res)
	}
	if len(h.log.ErrorCalls) != 1 {
		t.Errorf("errors logged = %v", h.log.ErrorCalls)
	}
}

type recordingUploader struct {
	paths []string
	dirs  []string
	fail  map[string]bool
}

func (u *recordingUploader) Upload(_ context.Context, localPath, remoteDir string) error {
	u.paths = append(u.paths, localPath)
	u.dirs = append(u.dirs, remoteDir)
	if u.fail[filepath.Base(localPath)] {
		return errors.New("quota exceeded")
	}
	return nil
}

func (u *recordingUploader) Target() common.UploadTarget { return common.TargetFTP }

func TestDownload_UploadsEachFile(t *testing.T) {
	h := newHarness(t, fullConfig())
	ctx := context.Background()
	if err := h.g.Login(ctx); err != nil {
		t.Fatal(err)
	}
	up := &recordingUploader{fail: map[string]bool{"Mastering Go.pdf": true}}
	res, err := h.g.Download(ctx, DownloadRequest{
		Count: 3, Format: common.FormatPDF, Dir: "/books", Uploader: up, UploadDir: "/remote",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(up.paths) != 2 {
		t.Fatalf("uploads = %v", up.paths)
	}
	if up.dirs[0] != "/remote" {
		t.Errorf("upload dir = %q", up.dirs[0])
	}
	if res.Uploaded != 1 {
		t.Errorf("Uploaded = %d, want 1", res.Uploaded)
	}
}

// closeFailFs creates files whose Close reports a write error.
type closeFailFs struct{ afero.Fs }

func (f closeFailFs) Create(name string) (afero.File, error) {
	file, err := f.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return closeFailFile{file}, nil
}

type closeFailFile struct{ afero.File }

func (closeFailFile) Close() error { return errors.New("no space left on device") }

func TestDownload_CloseErrorFailsItem(t *testing.T) {
	h := newHarness(t, fullConfig())
	h.g.fs = closeFailFs{h.fs}
	ctx := context.Background()
	if err := h.g.Login(ctx); err != nil {
		t.Fatal(err)
	}
	up := &recordingUploader{}
	res, err := h.g.Download(ctx, DownloadRequest{
		Count: 2, Format: common.FormatPDF, Dir: "/books", Uploader: up, UploadDir: "/remote",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if res.Failed != 2 || len(res.Downloaded) != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(up.paths) != 0 {
		t.Errorf("uploaded after failed write: %v", up.paths)
	}
}

func TestDownload_NotLoggedIn(t *testing.T) {
	h := newHarness(t, fullConfig())
	_, err := h.g.Download(context.Background(), DownloadRequest{Count: 1, Format: common.FormatPDF, Dir: "/books"})
	if !errors.Is(err, markup.ErrNotFound) {
		t.Fatalf("expected listing not found, got %v", err)
	}
}

type fakeProgress struct {
	names  []string
	closed int
}

func (p *fakeProgress) Track(name string, _ int64, r io.Reader) io.ReadCloser {
	p.names = append(p.names, name)
	return &countingCloser{Reader: r, p: p}
}

type countingCloser struct {
	io.Reader
	p *fakeProgress
}

func (c *countingCloser) Close() error {
	c.p.closed++
	return nil
}

func TestDownload_Progress(t *testing.T) {
	h := newHarness(t, fullConfig())
	prog := &fakeProgress{}
	h.g.progress = prog
	ctx := context.Background()
	if err := h.g.Login(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := h.g.Download(ctx, DownloadRequest{Count: 2, Format: common.FormatPDF, Dir: "/books"}); err != nil {
		t.Fatal(err)
	}
	if len(prog.names) != 2 || prog.closed != 2 {
		t.Errorf("progress names=%v closed=%d", prog.names, prog.closed)
	}
}

func TestFreeTitle(t *testing.T) {
	h := newHarness(t, fullConfig())
	title, err := h.g.FreeTitle(context.Background())
	if err != nil {
		t.Fatalf("FreeTitle: %v", err)
	}
	if title != testTitle {
		t.Errorf("title = %q, want %q", title, testTitle)
	}
}

func TestFreeTitle_UsesFreshSession(t *testing.T) {
	var sawCookie bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionName); err == nil {
			sawCookie = true
		}
		fmt.Fprint(w, `<div class="dotd-title"> Go </div>`)
	}))
	defer srv.Close()

	sess, _ := session.New(session.Options{})
	u, _ := url.Parse(srv.URL)
	sess.SetCookies(u, []*http.Cookie{{Name: sessionName, Value: "valid"}})
	g, _ := New(Options{BaseURL: srv.URL, Session: sess, Config: fullConfig()})

	title, err := g.FreeTitle(context.Background())
	if err != nil || title != "Go" {
		t.Fatalf("FreeTitle = %q, %v", title, err)
	}
	if sawCookie {
		t.Error("title lookup carried the logged-in session cookie")
	}
}

func TestLibraryCSV(t *testing.T) {
	h := newHarness(t, fullConfig())
	ctx := context.Background()
	if err := h.g.Login(ctx); err != nil {
		t.Fatal(err)
	}
	books, err := h.g.Library(ctx)
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	var sb strings.Builder
	if err := WriteCSV(&sb, Entries(books)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "id,title,formats\n" +
		"21430,Mastering Go,pdf epub mobi\n" +
		"19877,Learning Kubernetes,pdf\n" +
		"18102,Python Data Science,epub\n"
	if sb.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", sb.String(), want)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct{ title, want string }{
		{"Mastering Go", "Mastering Go.pdf"},
		{"TCP/IP Illustrated", "TCP_IP Illustrated.pdf"},
		{`C:\evil`, "C:_evil.pdf"},
	}
	for _, tt := range tests {
		if got := FileName(tt.title, "pdf"); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestSelectBooks(t *testing.T) {
	books := []markup.Book{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	for n, want := range map[int]int{-1: 0, 0: 0, 2: 2, 3: 3, 7: 3} {
		if got := len(selectBooks(books, n)); got != want {
			t.Errorf("selectBooks(n=%d) len = %d, want %d", n, got, want)
		}
	}
	if got := selectBooks(books, 2); got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("order not preserved: %+v", got)
	}
}
