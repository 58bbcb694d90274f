// internal/domdriver/fallback_test.go
package domdriver

import (
	"testing"

	"github.com/valpere/CommentHarvester/internal/records"
)

const fallbackFixture = `
<div class="comments-comments-list">
	<article class="comments-comment-entity" data-id="comment-1">
		<div class="comments-comment-meta__description-title">Dana Reyes</div>
		<div class="comments-comment-meta__description-subtitle">Growth Lead at Northwind</div>
		<a href="https://www.example.com/in/danareyes">profile</a>
		<div class="comments-comment-item__main-content">
			Interested! dana.reyes@northwind.dev please add me
		</div>
	</article>
	<article class="comments-comment-entity" data-id="comment-2">
		<div class="comments-comment-meta__description-title">No Email Here</div>
		<div class="comments-comment-item__main-content">
			Great initiative, following along.
		</div>
	</article>
	<article class="comments-comment-entity" data-id="comment-3">
		<div class="comments-comment-item__main-content">
			anonymous drop: tips@insider.example.org
		</div>
	</article>
</div>`

func TestFallbackScan(t *testing.T) {
	recs := FallbackScan(fallbackFixture, "https://www.example.com/feed/update/1")

	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	byEmail := map[string]records.Record{}
	for _, rec := range recs {
		byEmail[rec.Email] = rec
		if rec.SourceType != records.SourceFallback {
			t.Errorf("SourceType = %q, want %q", rec.SourceType, records.SourceFallback)
		}
	}

	dana, ok := byEmail["dana.reyes@northwind.dev"]
	if !ok {
		t.Fatal("missing record for dana.reyes@northwind.dev")
	}
	if dana.AuthorName != "Dana Reyes" {
		t.Errorf("AuthorName = %q", dana.AuthorName)
	}
	if dana.AuthorTitle != "Growth Lead at Northwind" {
		t.Errorf("AuthorTitle = %q", dana.AuthorTitle)
	}
	if dana.ProfileURL != "https://www.example.com/in/danareyes" {
		t.Errorf("ProfileURL = %q", dana.ProfileURL)
	}

	anon, ok := byEmail["tips@insider.example.org"]
	if !ok {
		t.Fatal("missing record for tips@insider.example.org")
	}
	if anon.AuthorName != records.PlaceholderAuthor {
		t.Errorf("author without name node = %q, want placeholder", anon.AuthorName)
	}
}

func TestFallbackScan_EmptyAndGarbage(t *testing.T) {
	if recs := FallbackScan("", "post"); len(recs) != 0 {
		t.Errorf("empty input produced %d records", len(recs))
	}
	if recs := FallbackScan("<div>no comments here</div>", "post"); len(recs) != 0 {
		t.Errorf("markup without containers produced %d records", len(recs))
	}
}

func TestFallbackScan_DeduplicatesAcrossSelectorFamilies(t *testing.T) {
	// One container matching two selector families must be visited once.
	html := `
	<article class="comments-comment-entity comments-comment-item" data-id="comment-9">
		<div class="comments-comment-item__main-content">hi: once.only@thread.example.com</div>
	</article>`

	recs := FallbackScan(html, "post")
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
}

func TestEnrichFromHTML(t *testing.T) {
	store := records.NewStore()
	store.Merge(records.Record{
		Email:      "dana.reyes@northwind.dev",
		AuthorName: records.PlaceholderAuthor,
		SourceType: records.SourceComment,
	})
	store.Merge(records.Record{
		Email:       "tips@insider.example.org",
		AuthorName:  "Already Known",
		AuthorTitle: "Kept Title",
		SourceType:  records.SourceComment,
	})

	enriched := EnrichFromHTML(fallbackFixture, store)
	if enriched == 0 {
		t.Fatal("nothing enriched")
	}

	dana, ok := store.Get("dana.reyes@northwind.dev")
	if !ok {
		t.Fatal("record vanished")
	}
	if dana.AuthorName != "Dana Reyes" {
		t.Errorf("placeholder not replaced: %q", dana.AuthorName)
	}
	if dana.AuthorTitle != "Growth Lead at Northwind" {
		t.Errorf("title not filled: %q", dana.AuthorTitle)
	}

	known, _ := store.Get("tips@insider.example.org")
	if known.AuthorName != "Already Known" {
		t.Errorf("real name overwritten: %q", known.AuthorName)
	}
}
