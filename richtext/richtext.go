// Package richtext renders Prismic structured text segments as HTML.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// Segment is one block of structured text: a paragraph, heading, list item,
// preformatted block, image or embed.
type Segment struct {
	Type   string  `json:"type"`
	Text   string  `json:"text"`
	Spans  []Span  `json:"spans"`
	URL    string  `json:"url,omitempty"`
	Alt    string  `json:"alt,omitempty"`
	Oembed *Oembed `json:"oembed,omitempty"`
}

// Span marks up the rune range [Start, End) of a segment's text.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  string   `json:"type"`
	Data  SpanData `json:"data"`
}

// SpanData holds hyperlink and label attributes.
type SpanData struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	ID       string `json:"id,omitempty"`
	UID      string `json:"uid,omitempty"`
	Type     string `json:"type,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Oembed is the provider payload of an embed segment.
type Oembed struct {
	EmbedURL string `json:"embed_url"`
	HTML     string `json:"html"`
}

// LinkResolver maps a hyperlink span to an href. An empty result drops the link.
type LinkResolver func(SpanData) string

// DefaultLinkResolver resolves web and media links to their URL and
// documents to /{type}/{uid}/, with "posts" served under /post/.
func DefaultLinkResolver(d SpanData) string {
	switch d.LinkType {
	case "Document":
		if d.UID == "" {
			return ""
		}
		prefix := d.Type
		if prefix == "posts" {
			prefix = "post"
		}
		return "/" + prefix + "/" + url.PathEscape(d.UID) + "/"
	default:
		return d.URL
	}
}

// HTML returns a templ.Component rendering segs.
func HTML(segs []Segment, resolve LinkResolver) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, segs, resolve)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// AsHTML renders segs to a string.
func AsHTML(segs []Segment, resolve LinkResolver) string {
	var buf bytes.Buffer
	Render(&buf, segs, resolve)
	return buf.String()
}

// Render writes the HTML representation of segs to buf. Consecutive list
// items are grouped into a single <ul> or <ol>.
func Render(buf *bytes.Buffer, segs []Segment, resolve LinkResolver) {
	if resolve == nil {
		resolve = DefaultLinkResolver
	}
	list := ""

	flushList := func() {
		if list != "" {
			buf.WriteString("</" + list + ">")
			list = ""
		}
	}
	openList := func(tag string) {
		if list != tag {
			flushList()
			buf.WriteString("<" + tag + ">")
			list = tag
		}
	}

	for _, seg := range segs {
		switch seg.Type {
		case "list-item":
			openList("ul")
			writeElement(buf, "li", seg, resolve)
			continue
		case "o-list-item":
			openList("ol")
			writeElement(buf, "li", seg, resolve)
			continue
		}
		flushList()

		switch seg.Type {
		case "paragraph":
			writeElement(buf, "p", seg, resolve)
		case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
			writeElement(buf, "h"+seg.Type[len("heading"):], seg, resolve)
		case "preformatted":
			writeElement(buf, "pre", seg, resolve)
		case "image":
			src := SafeURL(seg.URL)
			if src == "" {
				continue
			}
			buf.WriteString(`<p class="block-img"><img src="` + src + `" alt="` + html.EscapeString(seg.Alt) + `" loading="lazy" decoding="async"/></p>`)
		case "embed":
			if seg.Oembed == nil {
				continue
			}
			buf.WriteString(`<div data-oembed="` + html.EscapeString(seg.Oembed.EmbedURL) + `">`)
			buf.WriteString(seg.Oembed.HTML)
			buf.WriteString("</div>")
		}
	}
	flushList()
}

func writeElement(buf *bytes.Buffer, tag string, seg Segment, resolve LinkResolver) {
	buf.WriteString("<" + tag + ">")
	buf.WriteString(FormatSpans(seg.Text, seg.Spans, resolve))
	buf.WriteString("</" + tag + ">")
}

// FormatSpans escapes text and applies spans. Span offsets count UTF-16
// code units, as the API sends them. Overlapping spans that do not nest are
// closed and reopened so the output stays well formed.
func FormatSpans(text string, spans []Span, resolve LinkResolver) string {
	if resolve == nil {
		resolve = DefaultLinkResolver
	}
	runes := []rune(text)
	n := len(runes)

	// units[r] is the UTF-16 offset at which rune r starts.
	units := make([]int, n+1)
	for r, c := range runes {
		units[r+1] = units[r] + utf16.RuneLen(c)
	}
	toRune := func(off int) int {
		return sort.SearchInts(units, off)
	}

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		s.Start, s.End = toRune(s.Start), toRune(s.End)
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > n {
			s.End = n
		}
		if s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
	}
	// Longer spans first at equal start so they enclose shorter ones.
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	type element struct {
		span  Span
		close string
	}
	var b strings.Builder
	var open []element
	push := func(s Span) {
		start, end := tags(s, resolve)
		b.WriteString(start)
		open = append(open, element{span: s, close: end})
	}
	next := 0
	for i := 0; i <= n; i++ {
		// close spans ending here, reopening any that sit above them
		for k := len(open) - 1; k >= 0; k-- {
			if open[k].span.End != i {
				continue
			}
			var above []Span
			for j := len(open) - 1; j >= k; j-- {
				b.WriteString(open[j].close)
				if j > k {
					above = append([]Span{open[j].span}, above...)
				}
			}
			open = open[:k]
			for _, s := range above {
				push(s)
			}
		}
		for next < len(valid) && valid[next].Start == i {
			push(valid[next])
			next++
		}
		if i < n {
			if runes[i] == '\n' {
				b.WriteString("<br />")
			} else {
				b.WriteString(html.EscapeString(string(runes[i])))
			}
		}
	}
	return b.String()
}

func tags(s Span, resolve LinkResolver) (string, string) {
	switch s.Type {
	case "strong":
		return "<strong>", "</strong>"
	case "em":
		return "<em>", "</em>"
	case "label":
		return `<span class="` + html.EscapeString(s.Data.Label) + `">`, "</span>"
	case "hyperlink":
		href := SafeURL(resolve(s.Data))
		if href == "" {
			return "<span>", "</span>"
		}
		attrs := ""
		if s.Data.Target == "_blank" {
			attrs = ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>`, "</a>"
	}
	return "<span>", "</span>"
}

// SafeURL returns raw HTML-escaped if it is a relative path or uses an
// allowed scheme, or "" otherwise.
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
