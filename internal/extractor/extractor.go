// Package extractor builds the structural snapshot of a page that the planner
// reasons over.
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

const (
	buttonSelector       = "button, input[type=submit], input[type=button], [role=button]"
	ipCandidateSelector  = "[data-ip], [class*=ip], [id*=ip], p"
	searchResultSelector = ".g, .result, .search-result, [data-result]"
	headingSelector      = "h1, h2, h3, h4, h5, h6"
	snippetSelector      = ".VwiC3b, .st, .snippet, .result-snippet, .description"
	fieldSelector        = "input, textarea, select"
)

// Extractor reads the page once and enumerates its interactive and content
// elements.
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger.Named("extractor")}
}

// Extract snapshots the current document. Every failure wraps ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, page schemas.Page) (*schemas.PageSnapshot, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read document: %w", schemas.ErrExtraction, err)
	}

	snapshot, err := FromHTML(html)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Page structure extracted.",
		zap.String("title", snapshot.Title),
		zap.Int("forms", len(snapshot.Forms)),
		zap.Int("buttons", len(snapshot.Buttons)),
		zap.Int("links", len(snapshot.Links)),
		zap.Int("inputs", len(snapshot.Inputs)),
		zap.Int("ip_elements", len(snapshot.IPElements)),
		zap.Int("search_results", len(snapshot.SearchResults)),
	)
	return snapshot, nil
}

// FromHTML parses a serialized document into a snapshot.
func FromHTML(html string) (*schemas.PageSnapshot, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	snapshot := &schemas.PageSnapshot{
		Title:         cleanText(doc.Find("title").First().Text()),
		Headings:      headings(doc),
		Forms:         forms(doc),
		Buttons:       buttons(doc),
		Links:         links(doc),
		Inputs:        inputs(doc),
		Images:        images(doc),
		IPElements:    ipElements(doc),
		SearchResults: searchResults(doc.Find(searchResultSelector)),
	}
	if desc, ok := doc.Find("meta[name=description]").First().Attr("content"); ok {
		snapshot.MetaDescription = strings.TrimSpace(desc)
	}
	return snapshot, nil
}

// ListItems maps every element matching selector to a search-result shaped
// item. Links are resolved against documentURL and any <base href>, so
// relative result links come back absolute. An empty documentURL leaves
// them as written.
func ListItems(html, selector, documentURL string) ([]schemas.SearchResult, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}
	base := baseURL(doc, documentURL)
	// An invalid selector matches nothing.
	items := searchResults(doc.Find(selector))
	for i := range items {
		items[i].URL = resolve(base, items[i].URL)
	}
	return items, nil
}

// baseURL is documentURL adjusted by the document's <base href>, or nil when
// neither yields an absolute URL.
func baseURL(doc *goquery.Document, documentURL string) *url.URL {
	base, err := url.Parse(strings.TrimSpace(documentURL))
	if err != nil || !base.IsAbs() {
		base = nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if base != nil {
				return base.ResolveReference(ref)
			}
			if ref.IsAbs() {
				return ref
			}
		}
	}
	return base
}

func resolve(base *url.URL, href string) string {
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %w", schemas.ErrExtraction, err)
	}
	return doc, nil
}

// cleanText collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

func classes(s *goquery.Selection) []string {
	fields := strings.Fields(attr(s, "class"))
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func fieldType(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "textarea":
		return "textarea"
	case "select":
		return "select"
	}
	if t := attr(s, "type"); t != "" {
		return strings.ToLower(t)
	}
	return "text"
}

func headings(doc *goquery.Document) []schemas.Heading {
	out := make([]schemas.Heading, 0)
	doc.Find(headingSelector).Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if text == "" {
			return
		}
		level := int(goquery.NodeName(s)[1] - '0')
		out = append(out, schemas.Heading{Level: level, Text: text})
	})
	return out
}

func forms(doc *goquery.Document) []schemas.FormInfo {
	out := make([]schemas.FormInfo, 0)
	doc.Find("form").Each(func(_ int, f *goquery.Selection) {
		form := schemas.FormInfo{
			ID:     attr(f, "id"),
			Action: attr(f, "action"),
			Method: strings.ToLower(attr(f, "method")),
			Inputs: make([]schemas.FormInput, 0),
		}
		f.Find(fieldSelector).Each(func(_ int, in *goquery.Selection) {
			_, required := in.Attr("required")
			form.Inputs = append(form.Inputs, schemas.FormInput{
				Type:        fieldType(in),
				Name:        attr(in, "name"),
				ID:          attr(in, "id"),
				Placeholder: attr(in, "placeholder"),
				Required:    required,
			})
		})
		out = append(out, form)
	})
	return out
}

func buttons(doc *goquery.Document) []schemas.ButtonInfo {
	out := make([]schemas.ButtonInfo, 0)
	doc.Find(buttonSelector).Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if text == "" {
			text = attr(s, "value")
		}
		out = append(out, schemas.ButtonInfo{
			Type:      attr(s, "type"),
			Text:      text,
			ID:        attr(s, "id"),
			Classes:   classes(s),
			AriaLabel: attr(s, "aria-label"),
		})
	})
	return out
}

func links(doc *goquery.Document) []schemas.LinkInfo {
	out := make([]schemas.LinkInfo, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		out = append(out, schemas.LinkInfo{
			Href: attr(s, "href"),
			Text: cleanText(s.Text()),
			ID:   attr(s, "id"),
		})
	})
	return out
}

func inputs(doc *goquery.Document) []schemas.InputInfo {
	out := make([]schemas.InputInfo, 0)
	doc.Find(fieldSelector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, schemas.InputInfo{
			Type:        fieldType(s),
			Name:        attr(s, "name"),
			ID:          attr(s, "id"),
			Placeholder: attr(s, "placeholder"),
		})
	})
	return out
}

func images(doc *goquery.Document) []schemas.ImageInfo {
	out := make([]schemas.ImageInfo, 0)
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		out = append(out, schemas.ImageInfo{
			Src: attr(s, "src"),
			Alt: attr(s, "alt"),
			ID:  attr(s, "id"),
		})
	})
	return out
}

func ipElements(doc *goquery.Document) []schemas.IPElement {
	out := make([]schemas.IPElement, 0)
	doc.Find(ipCandidateSelector).Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		dataIP := attr(s, "data-ip")
		if text == "" && dataIP == "" {
			return
		}
		out = append(out, schemas.IPElement{
			Text:    text,
			ID:      attr(s, "id"),
			Classes: classes(s),
			Tag:     goquery.NodeName(s),
			DataIP:  dataIP,
		})
	})
	return out
}

func searchResults(sel *goquery.Selection) []schemas.SearchResult {
	out := make([]schemas.SearchResult, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		item := schemas.SearchResult{
			Title:   cleanText(s.Find(headingSelector).First().Text()),
			Snippet: cleanText(s.Find(snippetSelector).First().Text()),
		}

		link := s.Find("a[href]").First()
		if goquery.NodeName(s) == "a" {
			link = s
		}
		item.URL = attr(link, "href")
		if item.Title == "" {
			item.Title = cleanText(link.Text())
		}
		if item.Title == "" {
			item.Title = cleanText(s.Text())
		}
		out = append(out, item)
	})
	return out
}
