package posts

import (
	"fmt"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/richtext"
)

type summaryData struct {
	Title    *string `json:"title"`
	Subtitle *string `json:"subtitle"`
	Author   *string `json:"author"`
}

type detailData struct {
	Title    *string `json:"title"`
	Subtitle *string `json:"subtitle"`
	Author   *string `json:"author"`
	Banner   *struct {
		URL string `json:"url"`
	} `json:"banner"`
	Content *[]struct {
		Header *string            `json:"header"`
		Body   []richtext.Segment `json:"body"`
	} `json:"content"`
}

// DecodeSummary maps a raw document onto a Summary. Title and author are
// required; a null subtitle decodes as empty.
func DecodeSummary(doc prismic.Document) (Summary, error) {
	var data summaryData
	if err := doc.DecodeData(&data); err != nil {
		return Summary{}, err
	}
	if doc.UID == "" {
		return Summary{}, missing(doc, "uid")
	}
	if data.Title == nil {
		return Summary{}, missing(doc, "data.title")
	}
	if data.Author == nil {
		return Summary{}, missing(doc, "data.author")
	}
	published, err := prismic.ParseTimestamp(doc.FirstPublicationDate)
	if err != nil {
		return Summary{}, &prismic.DecodeError{DocumentID: doc.ID, Field: "first_publication_date", Err: err}
	}
	return Summary{
		Slug:                 doc.UID,
		FirstPublicationDate: published,
		Title:                *data.Title,
		Subtitle:             deref(data.Subtitle),
		Author:               *data.Author,
	}, nil
}

// DecodeDetail maps a raw document onto a Detail. Title, author and content
// are required; every content block needs a header.
func DecodeDetail(doc prismic.Document) (Detail, error) {
	var data detailData
	if err := doc.DecodeData(&data); err != nil {
		return Detail{}, err
	}
	if doc.UID == "" {
		return Detail{}, missing(doc, "uid")
	}
	if data.Title == nil {
		return Detail{}, missing(doc, "data.title")
	}
	if data.Author == nil {
		return Detail{}, missing(doc, "data.author")
	}
	if data.Content == nil {
		return Detail{}, missing(doc, "data.content")
	}
	first, err := prismic.ParseTimestamp(doc.FirstPublicationDate)
	if err != nil {
		return Detail{}, &prismic.DecodeError{DocumentID: doc.ID, Field: "first_publication_date", Err: err}
	}
	last, err := prismic.ParseTimestamp(doc.LastPublicationDate)
	if err != nil {
		return Detail{}, &prismic.DecodeError{DocumentID: doc.ID, Field: "last_publication_date", Err: err}
	}

	blocks := make([]ContentBlock, 0, len(*data.Content))
	for i, c := range *data.Content {
		if c.Header == nil {
			return Detail{}, missing(doc, fmt.Sprintf("data.content[%d].header", i))
		}
		blocks = append(blocks, ContentBlock{Header: *c.Header, Body: c.Body})
	}

	d := Detail{
		Slug:                 doc.UID,
		FirstPublicationDate: first,
		LastPublicationDate:  last,
		Title:                *data.Title,
		Subtitle:             deref(data.Subtitle),
		Author:               *data.Author,
		Content:              blocks,
	}
	if data.Banner != nil {
		d.BannerURL = data.Banner.URL
	}
	return d, nil
}

func missing(doc prismic.Document, field string) error {
	return &prismic.DecodeError{DocumentID: doc.ID, Field: field, Err: fmt.Errorf("missing")}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
