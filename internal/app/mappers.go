package app

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"libris/internal/domain"
)

/********** alias registry (single source of truth) **********/

var editionAliases = map[string][]string{
	"title":       {"title", "full_title", "work_title"},
	"author":      {"by_statement", "author_name"},
	"publisher":   {"publishers", "publisher"},
	"description": {"description.value", "description", "notes.value", "notes"},
	"date":        {"publish_date", "first_publish_date", "publish_year"},
	"subjects":    {"subjects", "subject", "genres"},
}

// Subjects that mark an edition as a comic rather than prose.
var comicMarkers = []string{"comic", "graphic novel", "manga", "bande dessinée", "cartoons"}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set. A []any of
// strings counts too (Open Library likes one-element arrays); its first entry
// wins.
func firstNonEmptyAlias(m map[string]any, key string) *string {
	for _, p := range editionAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return &s
			}
		case []any:
			for _, it := range v {
				if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
					t := strings.TrimSpace(s)
					return &t
				}
			}
		}
	}
	return nil
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// firstSliceStrings: accept []any with either strings or {name/value} objects.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					if n, ok := t["name"].(string); ok && n != "" {
						out = append(out, n)
						continue
					}
					if v, ok := t["value"].(string); ok && v != "" {
						out = append(out, v)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// yearFrom extracts a 4-digit year from loose date strings like
// "1988", "May 1988", "1988-05-01".
func yearFrom(s string) *int {
	run := 0
	val := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			run++
			val = val*10 + int(s[i]-'0')
			continue
		}
		if run == 4 && val >= 1000 {
			y := val
			return &y
		}
		run, val = 0, 0
	}
	return nil
}

// firstCoverURL builds a covers.openlibrary.org URL from the first cover id.
func firstCoverURL(m map[string]any) *string {
	raw, ok := lookupAny(m, "covers").([]any)
	if !ok {
		return nil
	}
	for _, it := range raw {
		if f, ok := it.(float64); ok && f > 0 {
			u := coverURL(int64(f))
			return &u
		}
	}
	return nil
}

func coverURL(id int64) string {
	return "https://covers.openlibrary.org/b/id/" + strconv.FormatInt(id, 10) + "-L.jpg"
}

/********** edition mapper **********/

func mapEdition(isbn string, p map[string]any) domain.Book {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Str("isbn", isbn).Msg("marshal edition payload failed")
	}

	title := "Untitled"
	if t := firstNonEmptyAlias(p, "title"); t != nil {
		title = *t
	}

	subjects := firstSliceStrings(p, editionAliases["subjects"]...)

	var year *int
	if d := firstNonEmptyAlias(p, "date"); d != nil {
		year = yearFrom(*d)
	}

	return domain.Book{
		Title:         title,
		Author:        firstNonEmptyAlias(p, "author"),
		ISBN:          ptrStr(isbn),
		Kind:          kindFromSubjects(subjects),
		PublishedYear: year,
		Publisher:     firstNonEmptyAlias(p, "publisher"),
		Description:   firstNonEmptyAlias(p, "description"),
		CoverURL:      firstCoverURL(p),
		Subjects:      subjects,
		RawJSON:       raw,
	}
}

func kindFromSubjects(subjects []string) string {
	for _, s := range subjects {
		low := strings.ToLower(s)
		for _, marker := range comicMarkers {
			if strings.Contains(low, marker) {
				return domain.KindComic
			}
		}
	}
	return domain.KindBook
}

/********** author enrichment **********/

// authorKeys pulls "/authors/OL...A" references off an edition payload.
func authorKeys(p map[string]any) []string {
	raw, ok := lookupAny(p, "authors").([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if k, ok := obj["key"].(string); ok && k != "" {
			out = append(out, k)
		}
	}
	return out
}

func mapAuthorName(p map[string]any) string {
	if s := strings.TrimSpace(lookupStr(p, "name")); s != "" {
		return s
	}
	return strings.TrimSpace(lookupStr(p, "personal_name"))
}
