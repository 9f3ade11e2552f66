package page

import (
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

const (
	// PlaceholderSelector locates the import-map placeholder the host's
	// module loader consumes.
	PlaceholderSelector = `script[type="importmap"]`
	// RootSelector locates the well-known root element the application
	// renders into.
	RootSelector = "#root"
)

// ErrNoPlaceholder reports a write against a page without an import-map
// placeholder.
var ErrNoPlaceholder = errors.New("page has no import map placeholder")

// Document is the shell page being prepared for the browser: the import
// map placeholder is filled before serving, and the root element receives
// either the application or a bootstrap error message.
type Document struct {
	mu  sync.Mutex
	doc *goquery.Document
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// ParseString reads an HTML document from a string.
func ParseString(html string) (*Document, error) {
	return Parse(strings.NewReader(html))
}

// HasPlaceholder reports whether the import-map placeholder exists.
func (d *Document) HasPlaceholder() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(PlaceholderSelector).Length() > 0
}

// WriteImportMap overwrites the placeholder content with the serialized
// resolution table.
func (d *Document) WriteImportMap(payload string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find(PlaceholderSelector)
	if sel.Length() == 0 {
		return ErrNoPlaceholder
	}
	sel.First().SetText(payload)
	return nil
}

// ImportMap returns the current placeholder content.
func (d *Document) ImportMap() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find(PlaceholderSelector)
	if sel.Length() == 0 {
		return "", false
	}
	return sel.First().Text(), true
}

// HasRoot reports whether the root element exists.
func (d *Document) HasRoot() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(RootSelector).Length() > 0
}

// WriteRoot replaces the root element's content with plain text. Reports
// whether a root element was present to write into.
func (d *Document) WriteRoot(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find(RootSelector)
	if sel.Length() == 0 {
		return false
	}
	sel.First().SetText(text)
	return true
}

// WriteRootHTML replaces the root element's content with markup.
func (d *Document) WriteRootHTML(html string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find(RootSelector)
	if sel.Length() == 0 {
		return false
	}
	sel.First().SetHtml(html)
	return true
}

// RootText returns the root element's text content.
func (d *Document) RootText() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(RootSelector).First().Text()
}

// InjectStyle appends a style element carrying compiled CSS to the head.
func (d *Document) InjectStyle(css string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	head := d.doc.Find("head")
	if head.Length() == 0 {
		return
	}
	head.First().AppendHtml("<style>" + css + "</style>")
}

// Render serializes the document back to HTML.
func (d *Document) Render() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}
