package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Entry describes one available 3D model asset.
type Entry struct {
	Name      string   `json:"name" yaml:"name"`
	Category  string   `json:"category" yaml:"category"`
	Tags      []string `json:"tags" yaml:"tags"`
	AssetPath string   `json:"svgPath" yaml:"svgPath"`
}

type document struct {
	Models []Entry `json:"models" yaml:"models"`
}

// Registry is an immutable index over manifest entries. A fresh Load
// replaces the registry wholesale; entries are never removed one at a
// time.
type Registry struct {
	entries    []Entry
	byName     map[string]int
	byCategory map[string][]int
}

func emptyRegistry() *Registry {
	return &Registry{
		byName:     map[string]int{},
		byCategory: map[string][]int{},
	}
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Names returns entry names in manifest order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Name)
	}
	return out
}

// GetByName returns the entry and true, or a zero entry and false.
func (r *Registry) GetByName(name string) (Entry, bool) {
	i, ok := r.byName[normalizeKey(name)]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// GetByCategory returns entries of the category in manifest order. An
// unknown category yields an empty slice, never an error.
func (r *Registry) GetByCategory(category string) []Entry {
	idx := r.byCategory[normalizeKey(category)]
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.entries[i])
	}
	return out
}

// GetByTag returns entries whose tag set contains tag, in manifest order.
func (r *Registry) GetByTag(tag string) []Entry {
	want := normalizeKey(tag)
	if want == "" {
		return []Entry{}
	}
	out := []Entry{}
	for _, e := range r.entries {
		for _, t := range e.Tags {
			if normalizeKey(t) == want {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// All returns a copy of every entry in manifest order.
func (r *Registry) All() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Loader fetches and parses model manifests.
type Loader struct {
	log    zerolog.Logger
	client *http.Client
}

func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{
		log:    log,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Load reads a manifest from an http(s) URL or a file path. Fetch or
// parse failure is logged and yields an empty registry; it never
// propagates an error. A single bad entry is skipped, the rest of the
// batch survives.
func (l *Loader) Load(ctx context.Context, source string) *Registry {
	data, err := l.fetch(ctx, source)
	if err != nil {
		l.log.Error().Err(err).Str("source", source).Msg("manifest fetch failed, registry empty")
		return emptyRegistry()
	}
	return l.LoadBytes(data, source)
}

// LoadBytes builds a registry from raw manifest bytes. JSON and YAML
// documents are both accepted.
func (l *Loader) LoadBytes(data []byte, source string) *Registry {
	doc, err := parseManifest(data)
	if err != nil {
		l.log.Error().Err(err).Str("source", source).Msg("manifest parse failed, registry empty")
		return emptyRegistry()
	}

	reg := emptyRegistry()
	for i, e := range doc.Models {
		if err := validateEntry(e); err != nil {
			l.log.Warn().Err(err).Int("index", i).Str("source", source).Msg("manifest entry skipped")
			continue
		}
		key := normalizeKey(e.Name)
		if _, dup := reg.byName[key]; dup {
			l.log.Warn().Str("name", e.Name).Str("source", source).Msg("duplicate manifest entry skipped")
			continue
		}
		e.Tags = normalizeTags(e.Tags)
		reg.byName[key] = len(reg.entries)
		reg.byCategory[normalizeKey(e.Category)] = append(reg.byCategory[normalizeKey(e.Category)], len(reg.entries))
		reg.entries = append(reg.entries, e)
	}

	l.log.Info().Int("entries", reg.Len()).Str("source", source).Msg("model manifest loaded")
	return reg
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("manifest fetch returned status %d", resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	}
	return os.ReadFile(source)
}

func parseManifest(data []byte) (document, error) {
	var doc document
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return doc, fmt.Errorf("manifest is empty")
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return doc, err
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func validateEntry(e Entry) error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("entry has no name")
	}
	return nil
}

func normalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		t := normalizeKey(raw)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
