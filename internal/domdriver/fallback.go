// internal/domdriver/fallback.go
package domdriver

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/CommentHarvester/internal/emails"
	"github.com/valpere/CommentHarvester/internal/records"
)

// Container and field selectors, in priority order. The first selector
// that yields text wins. Kept as data for the same reason the button
// heuristics live in scripts: class families churn.
var (
	containerSelectors = []string{
		"article.comments-comment-entity",
		"article.comments-comment-item",
		".comments-comment-item",
		".comments-comment-entity",
		"[data-id^=\"comment\"]",
	}
	bodySelectors = []string{
		".comments-comment-item__main-content",
		".comments-comment-texteditor",
		".update-components-text",
		".comment-body",
	}
	authorNameSelectors = []string{
		".comments-comment-meta__description-title",
		".comments-post-meta__name-text",
		".comments-comment-meta__name",
		".comment-author",
	}
	authorTitleSelectors = []string{
		".comments-comment-meta__description-subtitle",
		".comments-post-meta__headline",
		".comment-author-headline",
	}
)

// FallbackScan parses the rendered comments region and extracts email
// records directly from container markup. Used when network capture saw
// too little of the thread.
func FallbackScan(html, postURL string) []records.Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	now := time.Now().UTC()
	var out []records.Record
	forEachContainer(doc, func(container *goquery.Selection) {
		text := containerBodyText(container)
		if text == "" || !emails.ContainsEmailHint(text) {
			return
		}
		found := emails.Extract(text)
		if len(found) == 0 {
			return
		}

		name, title, profile := containerAuthor(container)
		name = emails.SanitizeDisplayText(name)
		if name == "" {
			name = records.PlaceholderAuthor
		}

		snippet := text
		if len(snippet) > records.MaxSnippetLength {
			snippet = snippet[:records.MaxSnippetLength]
		}
		for _, email := range found {
			out = append(out, records.Record{
				Email:          email,
				AuthorName:     name,
				AuthorTitle:    emails.SanitizeDisplayText(title),
				ProfileURL:     profile,
				PostURL:        postURL,
				ExtractedAt:    now,
				CommentSnippet: snippet,
				SourceType:     records.SourceFallback,
			})
		}
	})
	return out
}

// EnrichFromHTML fills author fields on already-collected records whose
// comment text appears in a rendered container. The network payload
// sometimes carries the comment body but only an opaque author reference;
// the rendered container has the display name. Returns how many records
// were touched.
func EnrichFromHTML(html string, store *records.Store) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}

	enriched := 0
	forEachContainer(doc, func(container *goquery.Selection) {
		text := containerBodyText(container)
		if text == "" || !emails.ContainsEmailHint(text) {
			return
		}
		name, title, profile := containerAuthor(container)
		name = emails.SanitizeDisplayText(name)
		if name == "" {
			return
		}

		for _, email := range emails.Extract(text) {
			ok := store.Enrich(email, func(rec *records.Record) {
				if rec.AuthorName == "" || rec.AuthorName == records.PlaceholderAuthor {
					rec.AuthorName = name
				}
				if rec.AuthorTitle == "" {
					rec.AuthorTitle = emails.SanitizeDisplayText(title)
				}
				if rec.ProfileURL == "" {
					rec.ProfileURL = profile
				}
			})
			if ok {
				enriched++
			}
		}
	})
	return enriched
}

// forEachContainer visits every comment container once, across all
// selector families.
func forEachContainer(doc *goquery.Document, fn func(*goquery.Selection)) {
	visited := make(map[string]bool)
	for _, sel := range containerSelectors {
		doc.Find(sel).Each(func(_ int, container *goquery.Selection) {
			// Containers can match multiple selector families; key on a
			// stable identity when one exists, otherwise on body text.
			key, exists := container.Attr("data-id")
			if !exists || key == "" {
				key = strings.TrimSpace(container.Text())
			}
			if key != "" && visited[key] {
				return
			}
			visited[key] = true
			fn(container)
		})
	}
}

// containerBodyText returns the comment body text, preferring dedicated
// body nodes over whole-container text.
func containerBodyText(container *goquery.Selection) string {
	for _, sel := range bodySelectors {
		if node := container.Find(sel).First(); node.Length() > 0 {
			if text := strings.TrimSpace(node.Text()); text != "" {
				return text
			}
		}
	}
	return strings.TrimSpace(container.Text())
}

// containerAuthor extracts the display name, headline, and profile link.
func containerAuthor(container *goquery.Selection) (name, title, profile string) {
	for _, sel := range authorNameSelectors {
		if node := container.Find(sel).First(); node.Length() > 0 {
			if text := strings.TrimSpace(node.Text()); text != "" {
				name = text
				break
			}
		}
	}
	for _, sel := range authorTitleSelectors {
		if node := container.Find(sel).First(); node.Length() > 0 {
			if text := strings.TrimSpace(node.Text()); text != "" {
				title = text
				break
			}
		}
	}
	container.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if strings.Contains(href, "/in/") {
			profile = href
			return false
		}
		return true
	})
	return name, title, profile
}
