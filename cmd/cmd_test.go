package cmd

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/packtgrab/packtgrab/common"
	"github.com/urfave/cli"
	gokeyring "github.com/zalando/go-keyring"
)

var testBuild = BuildArgs{Version: "1.0.0", BuildType: "test", Date: "2026-10-17", Commit: "abc123"}

// newSite serves the pages visited by library, title and grab.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.ParseForm()
			if r.PostForm.Get("name") == "reader" && r.PostForm.Get("pass") == "secret" {
				http.SetCookie(w, &http.Cookie{Name: "SESS", Value: "ok", Path: "/"})
				http.Redirect(w, r, "/account", http.StatusFound)
				return
			}
			http.Redirect(w, r, "/login?failed", http.StatusFound)
			return
		}
		fmt.Fprint(w, `<form id="packt-v3-account-login-form">
<input name="form_build_id" value="b"><input name="form_id" value="f"></form>`)
	})
	mux.HandleFunc("/account", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "welcome")
	})
	mux.HandleFunc("/account/my-ebooks", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("SESS"); err != nil || c.Value != "ok" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		fmt.Fprint(w, `<div id="product-account-list">
<div nid="1" title="Go Basics"><a href="/ebook_download/1/pdf">PDF</a><a href="/ebook_download/1/epub">ePub</a></div>
<div nid="2" title="Rust Basics"><a href="/ebook_download/2/epub">ePub</a></div>
</div>`)
	})
	mux.HandleFunc("/ebook_download/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "book %s", r.URL.Path)
	})
	mux.HandleFunc("/packt/offers/free-learning", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="dotd-title"><h2>  Daily Go  </h2></div>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "credential.json")
	if err := os.WriteFile(p, []byte(`{"name": "reader", "pass": "secret"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExecuteVersion(t *testing.T) {
	if err := Execute([]string{"packtgrab", "version"}, testBuild); err != nil {
		t.Fatalf("version: %v", err)
	}
}

func TestExecuteRejectsInvalidEnums(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"type", []string{"-c", "-t", "mobi"}, "mobi"},
		{"upload", []string{"-d", "1", "-u", "s3"}, "s3"},
		{"notify", []string{"-n", "slack"}, "slack"},
		{"negative count", []string{"-d", "-2"}, "-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The config path does not exist; validation must fail first.
			args := append([]string{"packtgrab", "--config", "/no/such/file.json"}, tt.args...)
			err := Execute(args, testBuild)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
			if strings.Contains(err.Error(), "configuration") {
				t.Errorf("configuration was read before flag validation: %v", err)
			}
		})
	}
}

func TestExecuteMissingConfigIsFatal(t *testing.T) {
	err := Execute([]string{"packtgrab", "-c", "--config", filepath.Join(t.TempDir(), "none.json")}, testBuild)
	if err == nil {
		t.Fatal("expected error for unreadable configuration")
	}
}

func TestGrabDownload(t *testing.T) {
	gokeyring.MockInit()
	srv := newSite(t)
	ddir := t.TempDir()
	metricsFile := filepath.Join(t.TempDir(), "packtgrab.prom")

	err := Execute([]string{"packtgrab",
		"--config", writeConfig(t),
		"--base-url", srv.URL,
		"--log", filepath.Join(t.TempDir(), "run.log"),
		"--metrics-file", metricsFile,
		"-d", "5", "-t", "epub", "--ddir", ddir,
	}, testBuild)
	if err != nil {
		t.Fatalf("grab: %v", err)
	}
	for _, name := range []string{"Go Basics.epub", "Rust Basics.epub"} {
		data, err := os.ReadFile(filepath.Join(ddir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if !strings.HasPrefix(string(data), "book /ebook_download/") {
			t.Errorf("%s content = %q", name, data)
		}
	}
	prom, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(prom), "packtgrab_books_downloaded_total 2") {
		t.Errorf("metrics:\n%s", prom)
	}
}

func TestLibraryCSV(t *testing.T) {
	gokeyring.MockInit()
	srv := newSite(t)
	out := filepath.Join(t.TempDir(), "books.csv")
	err := Execute([]string{"packtgrab", "library",
		"--config", writeConfig(t),
		"--base-url", srv.URL,
		"--log", filepath.Join(t.TempDir(), "run.log"),
		"--csv", out,
	}, testBuild)
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := "id,title,formats\n1,Go Basics,pdf epub\n2,Rust Basics,epub\n"
	if string(data) != want {
		t.Errorf("csv = %q, want %q", data, want)
	}
}

func TestTitle(t *testing.T) {
	srv := newSite(t)
	err := Execute([]string{"packtgrab", "title", "--base-url", srv.URL,
		"--log", filepath.Join(t.TempDir(), "run.log")}, testBuild)
	if err != nil {
		t.Fatalf("title: %v", err)
	}
}

func TestSecretSetDelete(t *testing.T) {
	gokeyring.MockInit()

	if err := Execute([]string{"packtgrab", "secret", "set", "anti-captcha", "key-123"}, testBuild); err != nil {
		t.Fatalf("secret set: %v", err)
	}
	got, err := newKeyring().Get("anti-captcha")
	if err != nil || got != "key-123" {
		t.Fatalf("stored secret = %q, %v", got, err)
	}
	if err := Execute([]string{"packtgrab", "secret", "delete", "anti-captcha"}, testBuild); err != nil {
		t.Fatalf("secret delete: %v", err)
	}
	if _, err := newKeyring().Get("anti-captcha"); err == nil {
		t.Error("secret still present after delete")
	}
	// Deleting again is not an error.
	if err := Execute([]string{"packtgrab", "secret", "delete", "anti-captcha"}, testBuild); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSecretSetFromStdin(t *testing.T) {
	gokeyring.MockInit()
	orig := stdin
	stdin = strings.NewReader("from-stdin\n")
	defer func() { stdin = orig }()

	if err := Execute([]string{"packtgrab", "secret", "set", "pass"}, testBuild); err != nil {
		t.Fatalf("secret set: %v", err)
	}
	if got, _ := newKeyring().Get("pass"); got != "from-stdin" {
		t.Errorf("stored = %q", got)
	}
}

func TestSecretRejectsUnknownKey(t *testing.T) {
	gokeyring.MockInit()
	for _, args := range [][]string{{"set", "name", "x"}, {"delete", "ifttt"}, {"set"}} {
		err := Execute(append([]string{"packtgrab", "secret"}, args...), testBuild)
		if err == nil {
			t.Errorf("secret %v: expected error", args)
		}
	}
}

func TestParseGrabChoices(t *testing.T) {
	app := cli.NewApp()
	set := flag.NewFlagSet("grab", flag.ContinueOnError)
	for _, f := range grabFlags {
		f.Apply(set)
	}
	// A bare FlagSet does not link aliases; only long names reach ctx.String.
	if err := set.Parse([]string{"--type", "EPUB", "--upload", "sftp", "--notify", "mailgun"}); err != nil {
		t.Fatal(err)
	}
	c, err := parseGrabChoices(cli.NewContext(app, set, nil))
	if err != nil {
		t.Fatalf("parseGrabChoices: %v", err)
	}
	if c.format != common.FormatEPUB || c.target != common.TargetSFTP || c.channel != common.ChannelMailgun {
		t.Errorf("choices = %+v", c)
	}
}
