package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"

	"tourguide/pkg/model"
)

// strapiPage is one page of a content-store collection response.
type strapiPage struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Pagination struct {
			Page      int `json:"page"`
			PageSize  int `json:"pageSize"`
			PageCount int `json:"pageCount"`
			Total     int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

// strapiItem accepts both the flat layout and the older one that nests
// fields under "attributes".
type strapiItem struct {
	ID         int64         `json:"id"`
	DocumentID string        `json:"documentId"`
	Attributes *strapiFields `json:"attributes"`
	strapiFields
}

type strapiFields struct {
	Name             string          `json:"name"`
	Slug             string          `json:"slug"`
	Lat              flexFloat       `json:"lat"`
	Lng              flexFloat       `json:"lng"`
	Radius           flexFloat       `json:"radius"`
	Intro            json.RawMessage `json:"intro"`
	InterestingFacts json.RawMessage `json:"interesting_facts"`
	Legends          json.RawMessage `json:"legends"`
	Audio            *strapiMedia    `json:"audio"`
}

// strapiMedia is either {"url": ...} or {"data": {"attributes": {"url": ...}}}.
type strapiMedia struct {
	URL  string `json:"url"`
	Data *struct {
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

func (m *strapiMedia) url() string {
	if m == nil {
		return ""
	}
	if m.URL != "" {
		return m.URL
	}
	if m.Data != nil {
		return m.Data.Attributes.URL
	}
	return ""
}

// flexFloat decodes a JSON number or numeric string. Anything else leaves it unset.
type flexFloat struct {
	v   float64
	set bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	f.v, f.set = v, true
	return nil
}

func (f flexFloat) orNaN() float64 {
	if !f.set {
		return math.NaN()
	}
	return f.v
}

func (f flexFloat) orZero() float64 {
	if !f.set {
		return 0
	}
	return f.v
}

// decodePage parses one page. Items that fail to decode are skipped and counted.
func decodePage(body []byte, base *url.URL) (regions []model.Region, pageCount, skipped int, err error) {
	var page strapiPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, 0, 0, fmt.Errorf("decode page: %w", err)
	}

	var items []json.RawMessage
	if trimmed := bytes.TrimSpace(page.Data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, 0, fmt.Errorf("decode data: %w", err)
		}
	} else {
		slog.Warn("Catalog page has no data array")
	}

	for i, raw := range items {
		var it strapiItem
		if err := json.Unmarshal(raw, &it); err != nil {
			slog.Warn("Skipping undecodable catalog item", "index", i, "error", err)
			skipped++
			continue
		}
		regions = append(regions, it.toRegion(base))
	}
	return regions, page.Meta.Pagination.PageCount, skipped, nil
}

func (it *strapiItem) toRegion(base *url.URL) model.Region {
	f := &it.strapiFields
	if it.Attributes != nil && f.Name == "" {
		f = it.Attributes
	}

	slug := f.Slug
	if slug == "" {
		slug = it.DocumentID
	}

	// Missing coordinates are kept as NaN so validation rejects the item.
	// Missing radius stays zero and the default applies.
	return model.Region{
		ID:     it.ID,
		Name:   f.Name,
		Lat:    f.Lat.orNaN(),
		Lon:    f.Lng.orNaN(),
		Radius: f.Radius.orZero(),
		Payload: model.Payload{
			AudioURL: resolveURL(base, f.Audio.url()),
			TTSText:  firstText(f.Intro, f.InterestingFacts, f.Legends),
			Slug:     slug,
		},
	}
}

func resolveURL(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil || u.IsAbs() {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

// firstText returns the plain text of the first rich-text field that has any.
func firstText(fields ...json.RawMessage) string {
	for _, raw := range fields {
		if t := blocksText(raw); t != "" {
			return t
		}
	}
	return ""
}

// blocksText flattens a rich-text blocks value to plain text. Text nodes and
// bare strings are joined with single spaces, blank ones dropped.
func blocksText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}

	var parts []string
	var walk func(n any)
	walk = func(n any) {
		switch t := n.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				parts = append(parts, s)
			}
		case []any:
			for _, c := range t {
				walk(c)
			}
		case map[string]any:
			if s, ok := t["text"].(string); ok {
				walk(s)
			}
			if children, ok := t["children"]; ok {
				walk(children)
			}
		}
	}
	walk(v)
	return strings.Join(parts, " ")
}
