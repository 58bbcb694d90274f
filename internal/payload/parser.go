// internal/payload/parser.go
package payload

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/CommentHarvester/internal/emails"
	"github.com/valpere/CommentHarvester/internal/records"
	"github.com/valpere/CommentHarvester/internal/utils"
)

// MaxEmailsPerComment caps how many records a single comment may produce.
// A comment with more valid-looking addresses than this is a false-positive
// flood, not a mailing list.
const MaxEmailsPerComment = 5

// Paging is the pagination metadata declared by a paged response.
type Paging struct {
	Total int
	Count int
	Start int
}

// TotalPages returns the number of pages implied by the declared totals.
func (p *Paging) TotalPages() int {
	if p == nil || p.Count <= 0 {
		return 0
	}
	return (p.Total + p.Count - 1) / p.Count
}

// Result is everything one decoded response body yields.
type Result struct {
	Records         []records.Record
	CommentsScanned int
	EmailsCapped    int // comments whose email list hit MaxEmailsPerComment
	Paging          *Paging
	IsReplySource   bool
	ReplyParentID   string // parent-comment identifier when IsReplySource
}

// Parser maps heterogeneous API response shapes into normalized comment
// records. It never raises past its boundary: unresolvable fields resolve
// to empty or placeholder values and malformed items are skipped.
type Parser struct {
	postURL     string
	profileBase string
	extractedAt time.Time
	logger      utils.Logger
}

// NewParser creates a parser attributing records to postURL. profileBase is
// prefixed onto bare profile identifiers to form absolute profile URLs.
func NewParser(postURL, profileBase string, logger utils.Logger) *Parser {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Parser{
		postURL:     postURL,
		profileBase: strings.TrimRight(profileBase, "/"),
		extractedAt: time.Now().UTC(),
		logger:      logger,
	}
}

// Field-path priority tables. Order matters: the first non-empty resolution
// wins. Kept as data so shapes can be extended without touching the walk.
var (
	textPaths = []string{
		"commentV2.text",
		"commentary.text",
		"message.text",
		"text.text",
		"comment.values.0.value",
	}
	authorNamePaths = []string{
		"commenter.author.name.text",
		"commenter.actor.name.text",
		"actor.name.text",
		"author.name.text",
		"commenter.name.text",
		"creator.name.text",
		"creator.firstName",
		"commenter.firstName",
		"value.author.name",
		"value.creator.name",
	}
	authorFirstPaths = []string{
		"commenter.actor.miniProfile.firstName",
		"actor.miniProfile.firstName",
		"commenter.miniProfile.firstName",
		"commenter.firstName",
		"creator.miniProfile.firstName",
		"creator.firstName",
	}
	authorLastPaths = []string{
		"commenter.actor.miniProfile.lastName",
		"actor.miniProfile.lastName",
		"commenter.miniProfile.lastName",
		"commenter.lastName",
		"creator.miniProfile.lastName",
		"creator.lastName",
	}
	authorTitlePaths = []string{
		"commenter.actor.headline",
		"actor.headline",
		"commenter.miniProfile.occupation",
		"actor.occupation",
		"commenter.headline",
	}
	profileURLPaths = []string{
		"commenter.actor.navigationUrl",
		"commenter.actor.miniProfile.publicIdentifier",
		"actor.miniProfile.publicIdentifier",
		"actor.navigationUrl",
		"commenter.publicIdentifier",
	}
	includedNamePaths  = []string{"name.text", "firstName", "miniProfile.firstName", "name"}
	includedFirstPaths = []string{"miniProfile.firstName", "firstName"}
	includedLastPaths  = []string{"miniProfile.lastName", "lastName"}
	includedTitlePaths = []string{"headline", "occupation", "miniProfile.occupation", "description.text", "miniProfile.headline"}
	includedURLPaths   = []string{"navigationUrl", "miniProfile.publicIdentifier", "publicIdentifier", "miniProfile.navigationUrl"}
)

// commentMarkers gate which payload items are treated as comments at all.
var commentMarkers = []string{"urn:li:comment", "urn:li:fsd_comment"}

// Parse walks one decoded response body and returns all comment records it
// contains, plus the paging metadata needed to drive replay.
func (p *Parser) Parse(body map[string]interface{}, rawURL string) Result {
	res := Result{Paging: extractPaging(body)}
	if body == nil {
		return res
	}
	res.ReplyParentID = replyParentID(rawURL)
	res.IsReplySource = res.ReplyParentID != ""

	candidates := collectCandidates(body)
	included, _ := body["included"].([]interface{})

	for _, item := range candidates {
		obj, ok := item.(map[string]interface{})
		if !ok || !isCommentItem(obj) {
			continue
		}
		recs, capped := p.parseComment(obj, included, res.IsReplySource)
		if len(recs) == 0 {
			continue
		}
		res.CommentsScanned++
		if capped {
			res.EmailsCapped++
		}
		res.Records = append(res.Records, recs...)
	}
	return res
}

// collectCandidates gathers items from the three known payload locations,
// plus replies already embedded inside an item's own comment list.
func collectCandidates(body map[string]interface{}) []interface{} {
	var out []interface{}
	appendElements := func(v interface{}) {
		if arr, ok := v.([]interface{}); ok {
			out = append(out, arr...)
		}
	}
	appendElements(body["elements"])
	appendElements(ResolvePath(body, "data.elements"))
	appendElements(body["included"])

	var nested []interface{}
	for _, item := range out {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if arr, ok := ResolvePath(obj, "comments.elements").([]interface{}); ok {
			nested = append(nested, arr...)
		}
		if arr, ok := ResolvePath(obj, "socialDetail.comments.elements").([]interface{}); ok {
			nested = append(nested, arr...)
		}
	}
	return append(out, nested...)
}

// isCommentItem reports whether an item is a comment record rather than an
// actor profile, paging block, or other side-table entry.
func isCommentItem(obj map[string]interface{}) bool {
	id := ResolveFirstString(obj, "entityUrn", "urn")
	for _, marker := range commentMarkers {
		if strings.Contains(id, marker) {
			return true
		}
	}
	typeTag, _ := obj["$type"].(string)
	return strings.Contains(typeTag, "Comment")
}

// parseComment turns one comment item into zero or more records, all
// sharing the item's author metadata. Returns capped=true when the email
// list was truncated at MaxEmailsPerComment.
func (p *Parser) parseComment(item map[string]interface{}, included []interface{}, isReply bool) ([]records.Record, bool) {
	text := ResolveFirstString(item, textPaths...)
	if text == "" || !emails.ContainsEmailHint(text) {
		return nil, false
	}

	found := emails.Extract(text)
	if len(found) == 0 {
		return nil, false
	}
	capped := false
	if len(found) > MaxEmailsPerComment {
		p.logger.Warnf("comment produced %d email candidates, keeping %d", len(found), MaxEmailsPerComment)
		found = found[:MaxEmailsPerComment]
		capped = true
	}

	name := ResolveFirstString(item, authorNamePaths...)
	if name == "" {
		name = joinName(
			ResolveFirstString(item, authorFirstPaths...),
			ResolveFirstString(item, authorLastPaths...),
		)
	}
	title := ResolveFirstString(item, authorTitlePaths...)
	profile := ResolveFirstString(item, profileURLPaths...)

	if name == "" || title == "" || profile == "" {
		iName, iTitle, iProfile := p.resolveFromIncluded(item, included)
		if name == "" {
			name = iName
		}
		if title == "" {
			title = iTitle
		}
		if profile == "" {
			profile = iProfile
		}
	}

	name = emails.SanitizeDisplayText(name)
	if name == "" || looksLikeBareIdentifier(name) {
		name = records.PlaceholderAuthor
	}

	base := records.Record{
		AuthorName:     name,
		AuthorTitle:    emails.SanitizeDisplayText(title),
		ProfileURL:     p.absoluteProfileURL(profile),
		PostURL:        p.postURL,
		ExtractedAt:    p.extractedAt,
		CommentSnippet: snippet(text),
		SourceType:     records.SourceComment,
	}
	if isReply {
		base.SourceType = records.SourceReply
	}

	out := make([]records.Record, 0, len(found))
	for _, email := range found {
		rec := base
		rec.Email = email
		out = append(out, rec)
	}
	return out, capped
}

// resolveFromIncluded cross-references the response side-table by actor
// identifier. Matching tolerates namespaced vs bare identifier variants via
// substring containment in either direction.
func (p *Parser) resolveFromIncluded(item map[string]interface{}, included []interface{}) (name, title, profile string) {
	ref := actorIdentifier(item)
	if ref == "" {
		return "", "", ""
	}
	for _, entry := range included {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		id := ResolveFirstString(obj, "entityUrn", "urn", "id", "miniProfile.entityUrn", "miniProfile.urn")
		if id == "" {
			continue
		}
		if id != ref && !strings.Contains(ref, id) && !strings.Contains(id, ref) {
			continue
		}
		name = ResolveFirstString(obj, includedNamePaths...)
		if name == "" {
			name = joinName(
				ResolveFirstString(obj, includedFirstPaths...),
				ResolveFirstString(obj, includedLastPaths...),
			)
		}
		title = ResolveFirstString(obj, includedTitlePaths...)
		profile = ResolveFirstString(obj, includedURLPaths...)
		return name, title, profile
	}
	return "", "", ""
}

// actorIdentifier extracts the commenter reference, which may be a bare
// identifier string or an object carrying its own identifier.
func actorIdentifier(item map[string]interface{}) string {
	for _, key := range []string{"commenter", "creator", "actor", "from"} {
		switch v := item[key].(type) {
		case string:
			if strings.HasPrefix(v, "urn:") {
				return v
			}
		case map[string]interface{}:
			if id := ResolveFirstString(v, "entityUrn", "urn", "actor"); id != "" {
				return id
			}
		}
	}
	return ""
}

// looksLikeBareIdentifier catches identifier strings that leaked into the
// author-name position: long, no whitespace, alphanumeric with separators.
func looksLikeBareIdentifier(name string) bool {
	if len(name) <= 20 || strings.ContainsAny(name, " \t") {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func snippet(text string) string {
	if len(text) > records.MaxSnippetLength {
		return text[:records.MaxSnippetLength]
	}
	return text
}

func (p *Parser) absoluteProfileURL(profile string) string {
	if profile == "" {
		return ""
	}
	if strings.HasPrefix(profile, "http://") || strings.HasPrefix(profile, "https://") {
		return profile
	}
	if p.profileBase == "" {
		return profile
	}
	return p.profileBase + "/" + strings.TrimLeft(profile, "/")
}

// extractPaging pulls the declared paging block from either known location.
func extractPaging(body map[string]interface{}) *Paging {
	for _, path := range []string{"paging", "data.paging"} {
		block, ok := ResolvePath(body, path).(map[string]interface{})
		if !ok {
			continue
		}
		total, okT := asInt(block["total"])
		count, okC := asInt(block["count"])
		if !okT || !okC {
			continue
		}
		start, _ := asInt(block["start"])
		return &Paging{Total: total, Count: count, Start: start}
	}
	return nil
}

// replyParentID returns the parent-comment identifier query parameter that
// marks a response as belonging to a reply thread.
func replyParentID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("commentUrn")
}

// asInt tolerates JSON numbers arriving as float64 or as strings.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
