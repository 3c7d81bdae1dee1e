package views

import (
	"encoding/json"
	"html/template"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostPath is the site path of the post with the given slug.
func PostPath(slug string) string {
	return "/post/" + url.PathEscape(slug) + "/"
}

// MoreURL is the load-more endpoint for a listing positioned at cursor, or
// "" when cursor is empty.
func MoreURL(cursor string, page int) string {
	if cursor == "" {
		return ""
	}
	q := url.Values{}
	q.Set("cursor", cursor)
	q.Set("page", strconv.Itoa(page))
	return "/posts/more/?" + q.Encode()
}

// Title formats a document title as "{title} | {site}".
func Title(cfg SiteConfig, title string) string {
	if title == "" {
		return cfg.Name
	}
	return title + " | " + cfg.Name
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) template.JS {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	return jsonLD(data)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, post PostView) template.JS {
	postURL := buildURL(cfg.URL, "post", post.Slug)
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "BlogPosting",
		"headline": post.Title,
		"url":      postURL,
		"author": map[string]string{
			"@type": "Person",
			"name":  post.Author,
		},
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.Subtitle != "" {
		data["description"] = post.Subtitle
	}
	if post.FirstPublicationDate != nil {
		data["datePublished"] = post.FirstPublicationDate.Format("2006-01-02")
	}
	if post.LastPublicationDate != nil {
		data["dateModified"] = post.LastPublicationDate.Format("2006-01-02")
	}
	if post.BannerURL != "" {
		data["image"] = post.BannerURL
	}
	return jsonLD(data)
}

// json.Marshal escapes <, > and &, so the output is safe inside <script>.
func jsonLD(data map[string]interface{}) template.JS {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return template.JS(b)
}
