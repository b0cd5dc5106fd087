// Package markup extracts values from the publisher's pages. Every
// structural assumption about the site's HTML lives in this file, so a
// site redesign only touches this package.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Selectors for the pages consumed by the grab pipeline.
const (
	loginFormXPath   = `//form[@id="packt-v3-account-login-form"]`
	claimFormXPath   = `//form[@id="free-learning-form"]`
	bookEntriesXPath = `//div[@id="product-account-list"]/div[@nid]`
	bookLinksXPath   = `.//a[@href]`
	freeTitleXPath   = `//div[@class="dotd-title"]`
)

// textOnly keeps the text of a fragment and drops every element,
// including script and style bodies.
var textOnly = bluemonday.StrictPolicy()

var siteKeyPattern = regexp.MustCompile(`Packt\.offers\.onLoadRecaptcha\('(.+?)'\)`)

// ErrNotFound matches every extraction failure.
var ErrNotFound = errors.New("expected markup not found")

// NotFoundError names the element that was missing.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found in page", e.What)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(what string) error {
	return &NotFoundError{What: what}
}

// LoginForm holds the hidden anti-forgery inputs of the login form.
type LoginForm struct {
	BuildID string
	FormID  string
}

// Book is one entry of the owned-items listing.
type Book struct {
	ID    string
	Title string
	Links []string
}

// Link returns the first download link containing format, e.g. "pdf".
func (b Book) Link(format string) (string, bool) {
	for _, l := range b.Links {
		if strings.Contains(l, format) {
			return l, true
		}
	}
	return "", false
}

func parse(body []byte) (*html.Node, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func inputValue(form *html.Node, name string) (string, bool) {
	n := htmlquery.FindOne(form, fmt.Sprintf(`.//input[@name=%q]`, name))
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == "value" {
			return a.Val, true
		}
	}
	return "", false
}

// ParseLoginForm extracts form_build_id and form_id from the login page.
func ParseLoginForm(body []byte) (LoginForm, error) {
	doc, err := parse(body)
	if err != nil {
		return LoginForm{}, err
	}
	form := htmlquery.FindOne(doc, loginFormXPath)
	if form == nil {
		return LoginForm{}, notFound("login form")
	}
	buildID, ok := inputValue(form, "form_build_id")
	if !ok {
		return LoginForm{}, notFound("login form_build_id")
	}
	formID, ok := inputValue(form, "form_id")
	if !ok {
		return LoginForm{}, notFound("login form_id")
	}
	return LoginForm{BuildID: buildID, FormID: formID}, nil
}

// SiteKey extracts the reCAPTCHA site key from the claim page's script text.
func SiteKey(body []byte) (string, error) {
	m := siteKeyPattern.FindSubmatch(body)
	if m == nil {
		return "", notFound("recaptcha site key")
	}
	return string(m[1]), nil
}

// ClaimAction returns the submission path of the claim form.
func ClaimAction(body []byte) (string, error) {
	doc, err := parse(body)
	if err != nil {
		return "", err
	}
	form := htmlquery.FindOne(doc, claimFormXPath)
	if form == nil {
		return "", notFound("claim form")
	}
	for _, a := range form.Attr {
		if a.Key == "action" {
			return a.Val, nil
		}
	}
	return "", notFound("claim form action")
}

// OwnedBooks lists the entries of the owned-items page in page order.
// Entries are the children of the listing carrying an nid attribute.
func OwnedBooks(body []byte) ([]Book, error) {
	doc, err := parse(body)
	if err != nil {
		return nil, err
	}
	if htmlquery.FindOne(doc, `//div[@id="product-account-list"]`) == nil {
		return nil, notFound("owned-items listing")
	}
	nodes := htmlquery.Find(doc, bookEntriesXPath)
	books := make([]Book, 0, len(nodes))
	for _, n := range nodes {
		b := Book{
			ID:    htmlquery.SelectAttr(n, "nid"),
			Title: htmlquery.SelectAttr(n, "title"),
		}
		for _, a := range htmlquery.Find(n, bookLinksXPath) {
			b.Links = append(b.Links, htmlquery.SelectAttr(a, "href"))
		}
		books = append(books, b)
	}
	return books, nil
}

// FreeTitle returns today's promotional title: every text node under the
// title block, concatenated and trimmed. Entities are decoded.
func FreeTitle(body []byte) (string, error) {
	doc, err := parse(body)
	if err != nil {
		return "", err
	}
	nodes := htmlquery.Find(doc, freeTitleXPath)
	if len(nodes) == 0 {
		return "", notFound("free title")
	}
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(html.UnescapeString(textOnly.Sanitize(htmlquery.OutputHTML(n, true))))
	}
	return strings.TrimSpace(sb.String()), nil
}
