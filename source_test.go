package spacetraveling

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/richtext"
)

// memSource is an in-memory content.Source for tests.
type memSource struct {
	mu       sync.Mutex
	order    []string
	docs     map[string]content.Document
	pageSize int
	queryErr error
	getErr   error
	gets     map[string]int
	release  chan struct{} // when set, GetByUID waits for it
	hold     chan struct{} // when set, GetByUID reads the document, then waits for it
}

func newMemSource() *memSource {
	return &memSource{docs: make(map[string]content.Document), gets: make(map[string]int), pageSize: 2}
}

func (m *memSource) put(uid string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	if _, ok := m.docs[uid]; !ok {
		m.order = append(m.order, uid)
	}
	published := time.Date(2021, 4, 19, 19, 25, 28, 0, time.UTC)
	m.docs[uid] = content.Document{
		Summary: content.Summary{ID: "id-" + uid, UID: uid, Type: PostType, FirstPublicationDate: &published},
		Data:    raw,
	}
}

func (m *memSource) remove(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, uid)
	for i, u := range m.order {
		if u == uid {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *memSource) getCount(uid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[uid]
}

func (m *memSource) Query(ctx context.Context, q content.Query) (content.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return content.Page{}, m.queryErr
	}
	size := q.PageSize
	if size <= 0 || size > m.pageSize {
		size = m.pageSize
	}
	page := max(q.Page, 1)
	total := (len(m.order) + size - 1) / size
	out := content.Page{Page: page, TotalPages: total}
	for i := (page - 1) * size; i < len(m.order) && i < page*size; i++ {
		out.Results = append(out.Results, m.docs[m.order[i]].Summary)
	}
	if page < total {
		out.NextPage = page + 1
	}
	return out, nil
}

func (m *memSource) GetByUID(ctx context.Context, docType, uid string) (content.Document, error) {
	m.mu.Lock()
	m.gets[uid]++
	release := m.release
	m.mu.Unlock()
	if release != nil {
		<-release
	}
	m.mu.Lock()
	if hold := m.hold; hold != nil {
		doc, ok := m.docs[uid]
		m.mu.Unlock()
		<-hold
		if !ok {
			return content.Document{}, fmt.Errorf("mem: %s %q: %w", docType, uid, content.ErrNotFound)
		}
		return doc, nil
	}
	defer m.mu.Unlock()
	if m.getErr != nil {
		return content.Document{}, m.getErr
	}
	doc, ok := m.docs[uid]
	if !ok || docType != PostType {
		return content.Document{}, fmt.Errorf("mem: %s %q: %w", docType, uid, content.ErrNotFound)
	}
	return doc, nil
}

type section map[string]any

func paragraph(text string) richtext.Block {
	return richtext.Block{Type: richtext.Paragraph, Text: text}
}

func loremWords(n int) string {
	return strings.TrimSpace(strings.Repeat("lorem ", n))
}

func postData(title, author string, sections ...section) map[string]any {
	if sections == nil {
		sections = []section{}
	}
	return map[string]any{
		"title":   title,
		"author":  author,
		"banner":  map[string]any{"url": "https://images.example.com/" + strings.ToLower(title) + ".png"},
		"content": sections,
		"extra":   "ignored",
	}
}

func textSection(heading string, paragraphs ...string) section {
	body := []richtext.Block{}
	for _, p := range paragraphs {
		body = append(body, paragraph(p))
	}
	return section{"heading": heading, "body": body}
}

func testConfig() Config {
	cfg := Config{URL: "https://blog.example.com"}
	cfg.setDefaults()
	return cfg
}

func newTestGenerator(t *testing.T, src content.Source, mutate ...func(*Config)) *Generator {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}
	return NewGenerator(src, cfg)
}
