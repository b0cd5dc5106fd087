package grabber

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/packtgrab/packtgrab/internal/captcha"
	"github.com/packtgrab/packtgrab/internal/session"
	"github.com/packtgrab/packtgrab/pkg/config"
	"github.com/packtgrab/packtgrab/pkg/logger"
	"github.com/spf13/afero"
)

const (
	testUser    = "reader@example.com"
	testPass    = "hunter2"
	testSiteKey = "6LeAHSgUAAAAAKsn5jo6RUSTLVxGNYyuvUcLMe0_"
	testToken   = "03AHJ_solved"
	testTitle   = "Mastering Go - Second Edition"
	sessionName = "SESS_packt"
)

type siteBook struct {
	id, title string
	formats   []string
}

// fakeSite imitates the publisher pages the pipeline visits.
type fakeSite struct {
	books []siteBook
	// missing lists download paths answered with 404.
	missing map[string]bool
	// claimLands controls where a valid claim redirects to.
	claimLands bool
	// noTitle drops the title block from the free-learning page.
	noTitle bool

	mu     sync.Mutex
	hits   map[string]int
	claims []string
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		books: []siteBook{
			{"21430", "Mastering Go", []string{"pdf", "epub", "mobi"}},
			{"19877", "Learning Kubernetes", []string{"pdf"}},
			{"18102", "Python Data Science", []string{"epub"}},
		},
		missing:    map[string]bool{},
		claimLands: true,
		hits:       map[string]int{},
	}
}

func (s *fakeSite) hit(path string) {
	s.mu.Lock()
	s.hits[path]++
	s.mu.Unlock()
}

func (s *fakeSite) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func loggedIn(r *http.Request) bool {
	c, err := r.Cookie(sessionName)
	return err == nil && c.Value == "valid"
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.hit(r.Method + " " + r.URL.Path)
	switch {
	case r.URL.Path == "/login" && r.Method == http.MethodGet:
		fmt.Fprint(w, `<html><body>
<form id="search"><input name="form_build_id" value="decoy"></form>
<form id="packt-v3-account-login-form" action="/login" method="post">
  <input name="name"><input name="pass" type="password">
  <input type="hidden" name="form_build_id" value="form-abc123">
  <input type="hidden" name="form_id" value="packt_user_login_form">
</form></body></html>`)

	case r.URL.Path == "/login" && r.Method == http.MethodPost:
		r.ParseForm()
		if r.PostForm.Get("name") == testUser && r.PostForm.Get("pass") == testPass &&
			r.PostForm.Get("form_build_id") == "form-abc123" &&
			r.PostForm.Get("form_id") == "packt_user_login_form" &&
			r.PostForm.Get("op") == "Log in" {
			http.SetCookie(w, &http.Cookie{Name: sessionName, Value: "valid", Path: "/"})
			http.Redirect(w, r, "/account", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/login?failed=1", http.StatusFound)

	case r.URL.Path == "/account":
		fmt.Fprint(w, `<html><body>Welcome back</body></html>`)

	case r.URL.Path == "/packt/offers/free-learning" && s.noTitle:
		fmt.Fprint(w, `<html><body><p>Come back tomorrow</p></body></html>`)

	case r.URL.Path == "/packt/offers/free-learning":
		fmt.Fprintf(w, `<html><head><script>
jQuery(function() { Packt.offers.onLoadRecaptcha('%s'); });
</script></head><body>
<div class="dotd-title">
  <h2>
    %s
  </h2>
</div>
<form id="free-learning-form" action="/freelearning-claim/21430/21478" method="post"></form>
</body></html>`, testSiteKey, testTitle)

	case strings.HasPrefix(r.URL.Path, "/freelearning-claim/"):
		r.ParseForm()
		s.mu.Lock()
		s.claims = append(s.claims, r.PostForm.Get("g-recaptcha-response"))
		s.mu.Unlock()
		if loggedIn(r) && s.claimLands && r.PostForm.Get("g-recaptcha-response") == testToken {
			http.Redirect(w, r, "/account/my-ebooks", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/packt/offers/free-learning", http.StatusFound)

	case r.URL.Path == "/account/my-ebooks":
		if !loggedIn(r) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		var sb strings.Builder
		sb.WriteString(`<html><body><div id="product-account-list">`)
		for _, b := range s.books {
			fmt.Fprintf(&sb, `<div class="product-line" nid="%s" title="%s">`, b.id, b.title)
			for _, f := range b.formats {
				fmt.Fprintf(&sb, `<a href="/ebook_download/%s/%s">%s</a>`, b.id, f, f)
			}
			sb.WriteString(`</div><div class="product-line-separator"></div>`)
		}
		sb.WriteString(`</div></body></html>`)
		fmt.Fprint(w, sb.String())

	case strings.HasPrefix(r.URL.Path, "/ebook_download/"):
		if !loggedIn(r) || s.missing[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "content of %s", r.URL.Path)

	default:
		http.NotFound(w, r)
	}
}

type fakeSolver struct {
	token string
	err   error
	tasks []captcha.Task
}

func (f *fakeSolver) Solve(_ context.Context, task captcha.Task) (string, error) {
	f.tasks = append(f.tasks, task)
	return f.token, f.err
}

type harness struct {
	site   *fakeSite
	srv    *httptest.Server
	g      *Grabber
	log    *logger.MockLogger
	fs     afero.Fs
	solver *fakeSolver
	sess   *session.Session
}

func fullConfig() *config.Config {
	return &config.Config{Name: testUser, Pass: testPass, AntiCaptcha: "client-key"}
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	site := newFakeSite()
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)

	sess, err := session.New(session.Options{})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	h := &harness{
		site:   site,
		srv:    srv,
		log:    logger.NewMockLogger(),
		fs:     afero.NewMemMapFs(),
		solver: &fakeSolver{token: testToken},
		sess:   sess,
	}
	h.g, err = New(Options{
		BaseURL: srv.URL,
		Session: sess,
		Config:  cfg,
		Log:     h.log,
		Solver:  h.solver,
		Fs:      h.fs,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}
