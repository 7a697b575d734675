package audit

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// NewPage parses body as HTML and fills the document, title, and absolute
// outbound links. base is the URL relative links resolve against (the final
// URL after redirects); pageURL is the key the page is stored under.
func NewPage(pageURL, base string, status int, body []byte, latency time.Duration) Page {
	page := Page{
		URL:        pageURL,
		StatusCode: status,
		Body:       string(body),
		Latency:    latency,
	}
	if base != pageURL {
		page.FinalURL = base
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		page.Error = fmt.Sprintf("parse html: %v", err)
		return page
	}
	page.Doc = doc
	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	page.Links = ResolveLinks(doc, base)
	return page
}

// ResolveLinks returns every a[href] target resolved against base.
func ResolveLinks(doc *goquery.Document, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		links = append(links, baseURL.ResolveReference(ref).String())
	})
	return links
}

// VisibleText returns the whitespace-collapsed text of the document body,
// ignoring script, style, and noscript content.
func VisibleText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}
	clone := body.Clone()
	clone.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}
