package stock

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/28jackiiee/video-scraping/models"
)

// maxFallbackItems caps results from the selector and regex strategies, which
// also match page chrome.
const maxFallbackItems = 20

const maxTitleRunes = 100

var mediaExts = []string{".mp4", ".mov", ".webm"}

func isMediaURL(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range mediaExts {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// stateMarkers locate embedded JSON state blobs. The JSON value starts right
// after the match.
var stateMarkers = []struct {
	re      *regexp.Regexp
	wrapKey string
}{
	{re: regexp.MustCompile(`window\.__INITIAL_STATE__\s*=\s*`)},
	{re: regexp.MustCompile(`window\.INITIAL_STATE\s*=\s*`)},
	{re: regexp.MustCompile(`__APOLLO_STATE__["']?\s*:\s*`)},
	{re: regexp.MustCompile(`window\.APOLLO_STATE\s*=\s*`)},
	{re: regexp.MustCompile(`"searchResults"\s*:\s*`), wrapKey: "searchResults"},
}

var resultPaths = [][]string{
	{"search", "results"},
	{"searchResults"},
	{"data", "search", "results"},
	{"assets"},
	{"items"},
}

// ExtractItems pulls video results out of a search page, trying embedded JSON
// state first, then data attributes, then bare media URLs.
func ExtractItems(html []byte) ([]models.CandidateItem, string) {
	if items := extractState(html); len(items) > 0 {
		return items, "json"
	}
	if items := extractElements(html); len(items) > 0 {
		return items, "selector"
	}
	if items := extractURLs(html); len(items) > 0 {
		return items, "regex"
	}
	return nil, ""
}

func extractState(html []byte) []models.CandidateItem {
	for _, m := range stateMarkers {
		loc := m.re.FindIndex(html)
		if loc == nil {
			continue
		}
		var blob json.RawMessage
		if err := json.NewDecoder(bytes.NewReader(html[loc[1]:])).Decode(&blob); err != nil {
			continue
		}
		if m.wrapKey != "" {
			wrapped, err := json.Marshal(map[string]json.RawMessage{m.wrapKey: blob})
			if err != nil {
				continue
			}
			blob = wrapped
		}
		if items := parseState(blob); len(items) > 0 {
			return items
		}
	}
	return nil
}

func parseState(blob json.RawMessage) []models.CandidateItem {
	for _, path := range resultPaths {
		node, ok := walk(blob, path)
		if !ok {
			continue
		}
		var items []models.CandidateItem
		for _, e := range entries(node) {
			if item, ok := itemFromJSON(e.value, e.key); ok {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

func walk(blob json.RawMessage, path []string) (json.RawMessage, bool) {
	cur := blob
	for _, key := range path {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(cur, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

type entry struct {
	key   string
	value json.RawMessage
}

// entries lists the members of an object, in document order, or the elements
// of an array with empty keys.
func entries(node json.RawMessage) []entry {
	trimmed := bytes.TrimSpace(node)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil
		}
		out := make([]entry, 0, len(arr))
		for _, v := range arr {
			out = append(out, entry{value: v})
		}
		return out
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return nil
		}
		var out []entry
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return out
			}
			key, _ := tok.(string)
			var v json.RawMessage
			if err := dec.Decode(&v); err != nil {
				return out
			}
			out = append(out, entry{key: key, value: v})
		}
		return out
	}
	return nil
}

func itemFromJSON(raw json.RawMessage, key string) (models.CandidateItem, bool) {
	var f map[string]any
	if err := json.Unmarshal(raw, &f); err != nil {
		return models.CandidateItem{}, false
	}
	if !isVideoAsset(f) {
		return models.CandidateItem{}, false
	}

	var preview, comp string
	for _, field := range []string{
		"video_preview_url", "preview_url", "comp_url", "thumbnail_url",
		"video_small_preview_url", "video_preview_url_https",
		"thumbnail_500_url", "thumbnail_1000_url",
	} {
		u := str(f[field])
		if u == "" || !isMediaURL(u) {
			continue
		}
		if strings.Contains(field, "preview") {
			if preview == "" {
				preview = u
			}
		} else if comp == "" {
			comp = u
		}
	}
	if preview == "" && comp == "" {
		return models.CandidateItem{}, false
	}

	id := firstNonEmpty(str(f["id"]), str(f["content_id"]), str(f["asset_id"]), key)
	if id == "" {
		return models.CandidateItem{}, false
	}

	item := models.CandidateItem{
		ID:           id,
		Title:        firstNonEmpty(str(f["title"]), str(f["name"]), "Video_"+id),
		PreviewURL:   preview,
		CompURL:      comp,
		ThumbnailURL: firstNonEmpty(str(f["thumbnail_500_url"]), str(f["thumbnail_url"])),
		PageURL:      firstNonEmpty(str(f["content_url"]), str(f["details_url"])),
		Description:  str(f["description"]),
		Tags:         tags(f["keywords"], f["tags"]),
	}
	if isMediaURL(item.ThumbnailURL) {
		item.ThumbnailURL = ""
	}
	if d, ok := f["duration_seconds"].(float64); ok && d > 0 {
		item.DurationSeconds = models.Seconds(d)
	} else if d, ok := ParseDuration(str(f["duration"])); ok {
		item.DurationSeconds = models.Seconds(d)
	}
	return item, true
}

func isVideoAsset(f map[string]any) bool {
	for _, field := range []string{"asset_type", "content_type", "media_type"} {
		switch strings.ToLower(str(f[field])) {
		case "video", "videos", "motion":
			return true
		}
	}
	return false
}

// str renders JSON strings and numbers; ids are often numeric.
func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func tags(fields ...any) []string {
	for _, field := range fields {
		list, ok := field.([]any)
		if !ok || len(list) == 0 {
			continue
		}
		var out []string
		for _, v := range list {
			if m, ok := v.(map[string]any); ok {
				v = m["name"]
			}
			if s := str(v); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

var elementSelectors = []string{
	"[data-video-preview-url]",
	"[data-comp-url]",
	".js-glyph-video",
	".video-thumbnail",
	`[data-asset-type="Videos"]`,
	"video",
	`.search-result[data-asset-type*="video" i]`,
}

var urlAttrs = []string{
	"data-video-preview-url", "data-comp-url", "data-preview-url",
	"data-video-url", "src", "data-src",
}

func extractElements(html []byte) []models.CandidateItem {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}
	var items []models.CandidateItem
	seen := map[string]bool{}
	for _, sel := range elementSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if len(items) >= maxFallbackItems {
				return
			}
			item, ok := itemFromElement(s)
			if !ok || seen[item.ID] {
				return
			}
			seen[item.ID] = true
			items = append(items, item)
		})
	}
	return items
}

func itemFromElement(s *goquery.Selection) (models.CandidateItem, bool) {
	var preview, comp string
	for _, attr := range urlAttrs {
		u, ok := s.Attr(attr)
		if !ok && (attr == "src" || attr == "data-src") {
			u, ok = s.Find("source").Attr(attr)
		}
		if !ok || !isMediaURL(u) {
			continue
		}
		if strings.Contains(attr, "preview") {
			preview = u
		} else {
			comp = u
		}
		break
	}
	if preview == "" && comp == "" {
		return models.CandidateItem{}, false
	}

	id := firstNonEmpty(
		attr(s, "data-content-id"),
		attr(s, "data-id"),
		attr(s, "data-asset-id"),
		urlID(firstNonEmpty(comp, preview)),
	)
	title := firstNonEmpty(
		attr(s, "data-title"),
		attr(s, "alt"),
		attr(s, "title"),
		strings.Join(strings.Fields(s.Text()), " "),
		"Video_"+id,
	)
	return models.CandidateItem{
		ID:           id,
		Title:        truncate(title, maxTitleRunes),
		PreviewURL:   preview,
		CompURL:      comp,
		ThumbnailURL: attr(s, "data-thumbnail-url"),
		Description:  attr(s, "data-description"),
	}, true
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return strings.TrimSpace(v)
}

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https://[^"\s]*adobe[^"\s]*\.mp4`),
	regexp.MustCompile(`(?i)https://[^"\s]*stock\.adobe\.com[^"\s]*\.(?:mp4|mov|webm)`),
	regexp.MustCompile(`(?i)data-video-preview-url="([^"]+)"`),
	regexp.MustCompile(`(?i)data-comp-url="([^"]+)"`),
	regexp.MustCompile(`(?i)"video_preview_url":\s*"([^"]+)"`),
	regexp.MustCompile(`(?i)"comp_url":\s*"([^"]+)"`),
}

func extractURLs(html []byte) []models.CandidateItem {
	var items []models.CandidateItem
	seen := map[string]bool{}
	for _, re := range urlPatterns {
		for _, m := range re.FindAllSubmatch(html, -1) {
			u := string(m[0])
			if len(m) > 1 {
				u = string(m[1])
			}
			if !isMediaURL(u) || seen[u] {
				continue
			}
			seen[u] = true
			id := urlID(u)
			item := models.CandidateItem{ID: id, Title: "Video_" + id}
			if strings.Contains(strings.ToLower(u), "preview") {
				item.PreviewURL = u
			} else {
				item.CompURL = u
			}
			items = append(items, item)
			if len(items) >= maxFallbackItems {
				return items
			}
		}
	}
	return items
}

// assetNumber matches the numeric asset id commonly embedded in media paths.
var assetNumber = regexp.MustCompile(`(\d{6,})`)

// urlID derives a stable id from a media URL so the same asset found on
// different pages deduplicates.
func urlID(u string) string {
	if u == "" {
		return ""
	}
	path := u
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if m := assetNumber.FindAllString(path, -1); len(m) > 0 {
		return m[len(m)-1]
	}
	return fmt.Sprintf("url-%x", sha256.Sum256([]byte(path)))[:20]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var isoDuration = regexp.MustCompile(`^P(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)$`)

// ParseDuration reads "PT1M5S", "01:05", "1:02:03" or "65.5" as seconds.
func ParseDuration(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if m := isoDuration.FindStringSubmatch(strings.ToUpper(s)); m != nil {
		var total float64
		for i, unit := range []time.Duration{time.Hour, time.Minute, time.Second} {
			if m[i+1] == "" {
				continue
			}
			v, _ := strconv.ParseFloat(m[i+1], 64)
			total += v * unit.Seconds()
		}
		return total, total > 0
	}
	if strings.Contains(s, ":") {
		var total float64
		for _, part := range strings.Split(s, ":") {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return 0, false
			}
			total = total*60 + v
		}
		return total, total > 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
