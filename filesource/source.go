// Package filesource serves documents from a directory of Markdown files,
// laid out as <root>/<type>/<uid>.md with YAML front matter. It implements
// content.Source for local development and tests.
//
// Front matter keys: title, author, banner, date. The body is split into
// sections at every level 1 or 2 heading; the heading text becomes the
// section heading and the rest is converted to rich-text blocks. Banners
// may be absolute http(s) URLs or site-relative paths such as /images/x.jpg.
//
// A file whose front matter or date cannot be parsed is reported as
// content.ErrMalformed by GetByUID and skipped by Query.
package filesource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/rs/zerolog"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/richtext"
)

const ext = ".md"

// Source reads documents from disk on every call; it keeps no state.
type Source struct {
	root string
	log  zerolog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger used to report skipped files.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Source) { s.log = log }
}

// New returns a Source rooted at dir.
func New(dir string, opts ...Option) *Source {
	s := &Source{root: dir, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the content directory.
func (s *Source) Root() string {
	return s.root
}

type frontMatter struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Banner string `yaml:"banner"`
	Date   string `yaml:"date"`
}

type section struct {
	Heading string           `json:"heading"`
	Body    []richtext.Block `json:"body"`
}

type postData struct {
	Title   string     `json:"title"`
	Author  string     `json:"author,omitempty"`
	Banner  bannerData `json:"banner"`
	Content []section  `json:"content"`
}

type bannerData struct {
	URL string `json:"url,omitempty"`
}

// Query lists documents of q.Type ordered by publication date, newest first,
// then by UID. Undated documents sort last. Malformed files are logged and
// left out.
func (s *Source) Query(ctx context.Context, q content.Query) (content.Page, error) {
	if err := ctx.Err(); err != nil {
		return content.Page{}, err
	}
	dir := filepath.Join(s.root, q.Type)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return content.Page{Page: 1}, nil
	}
	if err != nil {
		return content.Page{}, fmt.Errorf("filesource: %w: %w", content.ErrUnavailable, err)
	}

	var all []content.Summary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		uid := strings.TrimSuffix(e.Name(), ext)
		doc, err := s.load(q.Type, uid)
		if errors.Is(err, content.ErrMalformed) {
			s.log.Warn().Err(err).Str("uid", uid).Msg("skipping malformed document")
			continue
		}
		if err != nil {
			return content.Page{}, err
		}
		all = append(all, doc.Summary)
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i].FirstPublicationDate, all[j].FirstPublicationDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return all[i].UID < all[j].UID
	})

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size <= 0 {
		size = len(all)
		if size == 0 {
			size = 1
		}
	}
	total := (len(all) + size - 1) / size
	start := min((page-1)*size, len(all))
	end := min(start+size, len(all))
	out := content.Page{Results: all[start:end], Page: page, TotalPages: total}
	if page < total {
		out.NextPage = page + 1
	}
	return out, nil
}

// GetByUID implements content.Source. UIDs are matched exactly against file names.
func (s *Source) GetByUID(ctx context.Context, docType, uid string) (content.Document, error) {
	if err := ctx.Err(); err != nil {
		return content.Document{}, err
	}
	if uid == "" || strings.ContainsAny(uid, `/\`) || uid == "." || uid == ".." {
		return content.Document{}, fmt.Errorf("filesource: %s %q: %w", docType, uid, content.ErrNotFound)
	}
	return s.load(docType, uid)
}

func (s *Source) load(docType, uid string) (content.Document, error) {
	path := filepath.Join(s.root, docType, uid+ext)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return content.Document{}, fmt.Errorf("filesource: %s %q: %w", docType, uid, content.ErrNotFound)
	}
	if err != nil {
		return content.Document{}, fmt.Errorf("filesource: %w: %w", content.ErrUnavailable, err)
	}

	var fm frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm)
	if err != nil {
		return content.Document{}, fmt.Errorf("filesource: parse front matter of %s: %w: %w", path, content.ErrMalformed, err)
	}
	published, err := parseDate(fm.Date)
	if err != nil {
		return content.Document{}, fmt.Errorf("filesource: %s: %w: %w", path, content.ErrMalformed, err)
	}

	data, err := json.Marshal(postData{
		Title:   fm.Title,
		Author:  fm.Author,
		Banner:  bannerData{URL: fm.Banner},
		Content: convertSections(body),
	})
	if err != nil {
		return content.Document{}, fmt.Errorf("filesource: encode %s: %w", path, err)
	}

	var modified *time.Time
	if info, err := os.Stat(path); err == nil {
		t := info.ModTime().UTC()
		modified = &t
	}
	return content.Document{
		Summary: content.Summary{
			ID:                   docType + "/" + uid,
			UID:                  uid,
			Type:                 docType,
			FirstPublicationDate: published,
		},
		LastPublicationDate: modified,
		Data:                data,
	}, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// parseDate returns nil for an empty date; such documents count as unpublished.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q, use YYYY-MM-DD or RFC 3339", s)
}
