// internal/payload/parser_test.go
package payload

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/valpere/CommentHarvester/internal/records"
)

const testPostURL = "https://www.example.com/feed/update/urn:li:activity:123/"

func decodeBody(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("decode test payload: %v", err)
	}
	return body
}

func TestParse_InlineAuthorFields(t *testing.T) {
	body := decodeBody(t, `{
		"elements": [
			{
				"entityUrn": "urn:li:comment:(activity:123,456)",
				"commentary": {"text": "reach me at jane.doe@acme.io thanks"},
				"commenter": {
					"actor": {
						"name": {"text": "Jane Doe"},
						"headline": "VP Engineering",
						"navigationUrl": "https://www.example.com/in/janedoe"
					}
				}
			}
		],
		"paging": {"total": 120, "count": 10, "start": 0}
	}`)

	p := NewParser(testPostURL, "https://www.example.com/in", nil)
	res := p.Parse(body, "https://api.example.com/comments?start=0&count=10")

	if res.CommentsScanned != 1 {
		t.Fatalf("CommentsScanned = %d, want 1", res.CommentsScanned)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	rec := res.Records[0]
	if rec.Email != "jane.doe@acme.io" {
		t.Errorf("Email = %q", rec.Email)
	}
	if rec.AuthorName != "Jane Doe" {
		t.Errorf("AuthorName = %q", rec.AuthorName)
	}
	if rec.AuthorTitle != "VP Engineering" {
		t.Errorf("AuthorTitle = %q", rec.AuthorTitle)
	}
	if rec.ProfileURL != "https://www.example.com/in/janedoe" {
		t.Errorf("ProfileURL = %q", rec.ProfileURL)
	}
	if rec.PostURL != testPostURL {
		t.Errorf("PostURL = %q", rec.PostURL)
	}
	if rec.SourceType != records.SourceComment {
		t.Errorf("SourceType = %q, want %q", rec.SourceType, records.SourceComment)
	}

	if res.Paging == nil {
		t.Fatal("Paging is nil")
	}
	if res.Paging.Total != 120 || res.Paging.Count != 10 {
		t.Errorf("Paging = %+v", res.Paging)
	}
	if got := res.Paging.TotalPages(); got != 12 {
		t.Errorf("TotalPages() = %d, want 12", got)
	}
}

func TestParse_IncludedCrossReference(t *testing.T) {
	body := decodeBody(t, `{
		"data": {
			"elements": [
				{
					"entityUrn": "urn:li:fsd_comment:789",
					"commentV2": {"text": "contact: bob.lee@widgets.net"},
					"commenter": "urn:li:fsd_profile:ACoAAB12345"
				}
			]
		},
		"included": [
			{
				"entityUrn": "urn:li:fsd_profile:ACoAAB12345",
				"name": {"text": "Bob Lee"},
				"headline": "Founder at Widgets",
				"publicIdentifier": "boblee"
			}
		]
	}`)

	p := NewParser(testPostURL, "https://www.example.com/in", nil)
	res := p.Parse(body, "https://api.example.com/graphql?q=comments")

	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	rec := res.Records[0]
	if rec.AuthorName != "Bob Lee" {
		t.Errorf("AuthorName = %q, want cross-referenced name", rec.AuthorName)
	}
	if rec.AuthorTitle != "Founder at Widgets" {
		t.Errorf("AuthorTitle = %q", rec.AuthorTitle)
	}
	if rec.ProfileURL != "https://www.example.com/in/boblee" {
		t.Errorf("ProfileURL = %q, want base-prefixed identifier", rec.ProfileURL)
	}
}

func TestParse_IncludedSubstringMatch(t *testing.T) {
	// Side-table entries sometimes carry a namespaced variant of the
	// identifier the comment references.
	body := decodeBody(t, `{
		"elements": [
			{
				"entityUrn": "urn:li:comment:(activity:1,2)",
				"commentary": {"text": "mail me: kim@studio.org"},
				"commenter": "urn:li:fsd_profile:XY99"
			}
		],
		"included": [
			{
				"entityUrn": "urn:li:fs_miniProfile:urn:li:fsd_profile:XY99",
				"firstName": "Kim",
				"lastName": "Park",
				"occupation": "Designer"
			}
		]
	}`)

	p := NewParser(testPostURL, "", nil)
	res := p.Parse(body, "https://api.example.com/comments")

	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if got := res.Records[0].AuthorName; got != "Kim Park" {
		t.Errorf("AuthorName = %q, want joined first/last from substring match", got)
	}
	if got := res.Records[0].AuthorTitle; got != "Designer" {
		t.Errorf("AuthorTitle = %q", got)
	}
}

func TestParse_BareIdentifierBecomesPlaceholder(t *testing.T) {
	body := decodeBody(t, `{
		"elements": [
			{
				"entityUrn": "urn:li:comment:(activity:1,3)",
				"commentary": {"text": "write anna.b@mail.example.com"},
				"commenter": {"actor": {"name": {"text": "ACoAAB3k9xQBv2-1m4yW8sQ7"}}}
			}
		]
	}`)

	p := NewParser(testPostURL, "", nil)
	res := p.Parse(body, "https://api.example.com/comments")

	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if got := res.Records[0].AuthorName; got != records.PlaceholderAuthor {
		t.Errorf("AuthorName = %q, want %q", got, records.PlaceholderAuthor)
	}
}

func TestParse_MissingAuthorBecomesPlaceholder(t *testing.T) {
	body := decodeBody(t, `{
		"elements": [
			{
				"entityUrn": "urn:li:comment:(activity:1,4)",
				"message": {"text": "ping sales@tools.dev please"}
			}
		]
	}`)

	p := NewParser(testPostURL, "", nil)
	res := p.Parse(body, "https://api.example.com/comments")

	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}
	if got := res.Records[0].AuthorName; got != records.PlaceholderAuthor {
		t.Errorf("AuthorName = %q, want %q", got, records.PlaceholderAuthor)
	}
}

func TestParse_ReplySourceFromURL(t *testing.T) {
	body := decodeBody(t, `{
		"elements": [
			{
				"entityUrn": "urn:li:comment:(activity:1,5)",
				"commentary": {"text": "sure: reply.guy@corp.com"},
				"commenter": {"actor": {"name": {"text": "Reply Guy"}}}
			}
		]
	}`)

	rawURL := "https://api.example.com/comments?commentUrn=urn%3Ali%3Acomment%3A%28activity%3A1%2C9%29&start=0"
	p := NewParser(testPostURL, "", nil)
	res := p.Parse(body, rawURL)

	if !res.IsReplySource {
		t.Fatal("IsReplySource = false, want true")
	}
	if res.ReplyParentID != "urn:li:comment:(activity:1,9)" {
		t.Errorf("ReplyParentID = %q", res.ReplyParentID)
	}
	if got := res.Records[0].SourceType; got != records.SourceReply {
		t.Errorf("SourceType = %q, want %q", got, records.SourceReply)
	}
}

func TestParse_EmailCapPerComment(t *testing.T) {
	text := ""
	for i := 0; i < 8; i++ {
		text += fmt.Sprintf("person%02d@list.example.org ", i)
	}
	body := map[string]interface{}{
		"elements": []interface{}{
			map[string]interface{}{
				"entityUrn":  "urn:li:comment:(activity:1,6)",
				"commentary": map[string]interface{}{"text": text},
			},
		},
	}

	p := NewParser(testPostURL, "", nil)
	res := p.Parse(body, "https://api.example.com/comments")

	if len(res.Records) != MaxEmailsPerComment {
		t.Fatalf("got %d records, want %d", len(res.Records), MaxEmailsPerComment)
	}
	if res.EmailsCapped != 1 {
		t.Errorf("EmailsCapped = %d, want 1", res.EmailsCapped)
	}
}

func TestParse_SkipsNonCommentItems(t *testing.T) {
	body := decodeBody(t, `{
		"elements": [
			{
				"entityUrn": "urn:li:fsd_profile:ZZ1",
				"commentary": {"text": "bio mentions someone@somewhere.com"}
			},
			{
				"entityUrn": "urn:li:comment:(activity:1,7)",
				"commentary": {"text": "real one: c.real@place.io"}
			}
		]
	}`)

	p := NewParser(testPostURL, "", nil)
	res := p.Parse(body, "https://api.example.com/comments")

	if res.CommentsScanned != 1 {
		t.Errorf("CommentsScanned = %d, want 1", res.CommentsScanned)
	}
	if len(res.Records) != 1 || res.Records[0].Email != "c.real@place.io" {
		t.Errorf("records = %+v", res.Records)
	}
}

func TestParse_NestedReplyElements(t *testing.T) {
	body := decodeBody(t, `{
		"elements": [
			{
				"entityUrn": "urn:li:comment:(activity:1,8)",
				"commentary": {"text": "top: topper@alpha.com"},
				"comments": {
					"elements": [
						{
							"entityUrn": "urn:li:comment:(activity:1,8,1)",
							"commentary": {"text": "nested: nested@beta.org"}
						}
					]
				}
			}
		]
	}`)

	p := NewParser(testPostURL, "", nil)
	res := p.Parse(body, "https://api.example.com/comments")

	if res.CommentsScanned != 2 {
		t.Fatalf("CommentsScanned = %d, want 2", res.CommentsScanned)
	}
	seen := map[string]bool{}
	for _, rec := range res.Records {
		seen[rec.Email] = true
	}
	if !seen["topper@alpha.com"] || !seen["nested@beta.org"] {
		t.Errorf("missing nested record, got %v", seen)
	}
}

func TestParse_NoEmailHintShortCircuits(t *testing.T) {
	body := decodeBody(t, `{
		"elements": [
			{
				"entityUrn": "urn:li:comment:(activity:1,9)",
				"commentary": {"text": "great post, congrats on the launch"}
			}
		]
	}`)

	p := NewParser(testPostURL, "", nil)
	res := p.Parse(body, "https://api.example.com/comments")

	if res.CommentsScanned != 0 || len(res.Records) != 0 {
		t.Errorf("expected nothing, got scanned=%d records=%d", res.CommentsScanned, len(res.Records))
	}
}

func TestExtractPaging_StringNumbers(t *testing.T) {
	body := decodeBody(t, `{"paging": {"total": "45", "count": "10", "start": "20"}}`)
	paging := extractPaging(body)
	if paging == nil {
		t.Fatal("paging is nil")
	}
	if paging.Total != 45 || paging.Count != 10 || paging.Start != 20 {
		t.Errorf("paging = %+v", paging)
	}
}

func TestExtractPaging_Absent(t *testing.T) {
	if p := extractPaging(map[string]interface{}{"elements": []interface{}{}}); p != nil {
		t.Errorf("paging = %+v, want nil", p)
	}
}

func TestLooksLikeBareIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"ACoAAB3k9xQBv2-1m4yW8sQ7defg", true},
		{"Jane Doe", false},
		{"short.id", false},
		{"Dr. Maria del Carmen Gutierrez", false},
		{"user_name-with.dots_and_more_chars", true},
	}
	for _, tt := range tests {
		if got := looksLikeBareIdentifier(tt.name); got != tt.want {
			t.Errorf("looksLikeBareIdentifier(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
