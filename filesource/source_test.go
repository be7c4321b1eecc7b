package filesource

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/richtext"
)

const samplePost = `---
title: Como utilizar Hooks
author: Joseph Oliveira
banner: https://images.example.com/hooks.png
date: 2021-03-15
---
Intro paragraph.

# Proin et varius

Some **bold** and *italic* text with a [link](https://example.com).

- one
- two

## Cras laoreet

1. first

` + "```" + `
code line
` + "```" + `
`

func writePost(t *testing.T, root, uid, body string) {
	t.Helper()
	dir := filepath.Join(root, "posts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, uid+".md"), []byte(body), 0o644))
}

type decoded struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Banner struct {
		URL string `json:"url"`
	} `json:"banner"`
	Content []struct {
		Heading string           `json:"heading"`
		Body    []richtext.Block `json:"body"`
	} `json:"content"`
}

func TestGetByUID(t *testing.T) {
	root := t.TempDir()
	writePost(t, root, "como-utilizar-hooks", samplePost)

	doc, err := New(root).GetByUID(context.Background(), "posts", "como-utilizar-hooks")
	require.NoError(t, err)
	assert.Equal(t, "como-utilizar-hooks", doc.UID)
	assert.Equal(t, "posts", doc.Type)
	require.NotNil(t, doc.FirstPublicationDate)
	assert.Equal(t, time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC), *doc.FirstPublicationDate)

	var data decoded
	require.NoError(t, json.Unmarshal(doc.Data, &data))
	assert.Equal(t, "Como utilizar Hooks", data.Title)
	assert.Equal(t, "Joseph Oliveira", data.Author)
	assert.Equal(t, "https://images.example.com/hooks.png", data.Banner.URL)

	require.Len(t, data.Content, 3)
	assert.Equal(t, "", data.Content[0].Heading)
	assert.Equal(t, "Intro paragraph.", richtext.AsText(data.Content[0].Body))

	second := data.Content[1]
	assert.Equal(t, "Proin et varius", second.Heading)
	require.Len(t, second.Body, 3)
	para := second.Body[0]
	assert.Equal(t, richtext.Paragraph, para.Type)
	assert.Equal(t, "Some bold and italic text with a link.", para.Text)
	assert.Contains(t, para.Spans, richtext.Span{Start: 5, End: 9, Type: richtext.Strong})
	assert.Contains(t, para.Spans, richtext.Span{Start: 14, End: 20, Type: richtext.Em})
	assert.Equal(t, richtext.ListItem, second.Body[1].Type)
	assert.Equal(t, "one", second.Body[1].Text)
	assert.Equal(t, "two", second.Body[2].Text)

	third := data.Content[2]
	assert.Equal(t, "Cras laoreet", third.Heading)
	require.Len(t, third.Body, 2)
	assert.Equal(t, richtext.OListItem, third.Body[0].Type)
	assert.Equal(t, richtext.Preformatted, third.Body[1].Type)
	assert.Equal(t, "code line", third.Body[1].Text)
}

func TestGetByUIDNotFound(t *testing.T) {
	root := t.TempDir()
	writePost(t, root, "present", samplePost)
	s := New(root)

	for _, uid := range []string{"missing-post", "", "../posts/present"} {
		_, err := s.GetByUID(context.Background(), "posts", uid)
		assert.ErrorIs(t, err, content.ErrNotFound, "uid %q", uid)
	}
}

func TestQueryOrderAndPaging(t *testing.T) {
	root := t.TempDir()
	writePost(t, root, "old", "---\ntitle: Old\ndate: 2020-01-01\n---\nx\n")
	writePost(t, root, "new", "---\ntitle: New\ndate: 2021-01-01\n---\nx\n")
	writePost(t, root, "draft", "---\ntitle: Draft\n---\nx\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "posts", "notes.txt"), []byte("ignored"), 0o644))
	s := New(root)

	all, err := s.Query(context.Background(), content.Query{Type: "posts"})
	require.NoError(t, err)
	var uids []string
	for _, r := range all.Results {
		uids = append(uids, r.UID)
	}
	assert.Equal(t, []string{"new", "old", "draft"}, uids)
	assert.Equal(t, 0, all.NextPage)

	first, err := s.Query(context.Background(), content.Query{Type: "posts", PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, first.Results, 2)
	assert.Equal(t, 2, first.NextPage)

	second, err := s.Query(context.Background(), content.Query{Type: "posts", PageSize: 2, Page: 2})
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.Equal(t, "draft", second.Results[0].UID)
	assert.Equal(t, 0, second.NextPage)
}

func TestQueryMissingTypeDir(t *testing.T) {
	page, err := New(t.TempDir()).Query(context.Background(), content.Query{Type: "posts"})
	require.NoError(t, err)
	assert.Empty(t, page.Results)
}

func TestBadDateIsMalformed(t *testing.T) {
	root := t.TempDir()
	writePost(t, root, "bad", "---\ntitle: Bad\ndate: yesterday\n---\nx\n")

	_, err := New(root).GetByUID(context.Background(), "posts", "bad")
	assert.ErrorIs(t, err, content.ErrMalformed)
	assert.NotErrorIs(t, err, content.ErrUnavailable)
}

func TestQuerySkipsMalformedDocuments(t *testing.T) {
	root := t.TempDir()
	writePost(t, root, "good", samplePost)
	writePost(t, root, "bad", "---\ntitle: Bad\ndate: 19/04/2021\n---\nx\n")
	writePost(t, root, "broken", "---\ntitle: [unclosed\n---\nx\n")

	page, err := New(root).Query(context.Background(), content.Query{Type: "posts"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "good", page.Results[0].UID)

	_, err = New(root).GetByUID(context.Background(), "posts", "broken")
	assert.ErrorIs(t, err, content.ErrMalformed)
}

func TestWatcherReportsChanges(t *testing.T) {
	root := t.TempDir()
	writePost(t, root, "watched", samplePost)

	changed := make(chan string, 4)
	w, err := New(root).NewWatcher("posts", func(uid string) { changed <- uid }, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	writePost(t, root, "watched", samplePost+"\nmore\n")

	select {
	case uid := <-changed:
		assert.Equal(t, "watched", uid)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}
