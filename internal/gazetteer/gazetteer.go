// Package gazetteer loads the read-only reference entity set used to drive
// hub discovery. The gazetteer is loaded once at run start and shared without
// synchronization.
package gazetteer

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// File is the on-disk YAML shape of a gazetteer.
type File struct {
	Entities []hub.Entity `yaml:"entities"`
	// DomainHints maps a news domain to the entity IDs it is known to cover.
	DomainHints map[string][]string `yaml:"domain_hints,omitempty"`
}

// Gazetteer holds indexed reference entities.
type Gazetteer struct {
	byID        map[string]hub.Entity
	byKind      map[hub.EntityKind][]hub.Entity
	domainHints map[string]map[string]struct{}
}

// Load reads and indexes a YAML gazetteer file.
func Load(path string) (*Gazetteer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse gazetteer: %w", err)
	}
	return New(file)
}

// New indexes an already-parsed gazetteer file.
func New(file File) (*Gazetteer, error) {
	g := &Gazetteer{
		byID:        make(map[string]hub.Entity, len(file.Entities)),
		byKind:      make(map[hub.EntityKind][]hub.Entity),
		domainHints: make(map[string]map[string]struct{}, len(file.DomainHints)),
	}
	for _, e := range file.Entities {
		if e.ID == "" {
			return nil, fmt.Errorf("gazetteer entity %q has empty id", e.Name)
		}
		if e.Slug == "" {
			e.Slug = Slugify(e.Name)
		}
		if _, dup := g.byID[e.ID]; dup {
			return nil, fmt.Errorf("gazetteer entity %q duplicated", e.ID)
		}
		g.byID[e.ID] = e
		g.byKind[e.Kind] = append(g.byKind[e.Kind], e)
	}
	for domain, ids := range file.DomainHints {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		g.domainHints[strings.ToLower(domain)] = set
	}
	for kind := range g.byKind {
		sortEntities(g.byKind[kind])
	}
	return g, nil
}

// Len returns the number of loaded entities.
func (g *Gazetteer) Len() int {
	return len(g.byID)
}

// ListEntities returns entities of the given kind, ordered by importance
// descending with ties broken by ID for determinism. When domainHints are
// provided and the gazetteer has hints for one of those domains, the result
// is filtered to hinted entities; with no usable hints the full kind list is
// returned.
func (g *Gazetteer) ListEntities(kind hub.EntityKind, domainHints []string) []hub.Entity {
	all := g.byKind[kind]
	hinted := g.hintSet(domainHints)
	if hinted == nil {
		return append([]hub.Entity(nil), all...)
	}
	out := make([]hub.Entity, 0, len(all))
	for _, e := range all {
		if _, ok := hinted[e.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// ImportanceRank returns the importance of an entity, or 0 when unknown.
func (g *Gazetteer) ImportanceRank(entityID string) int {
	return g.byID[entityID].Importance
}

// Entity looks up an entity by ID.
func (g *Gazetteer) Entity(entityID string) (hub.Entity, bool) {
	e, ok := g.byID[entityID]
	return e, ok
}

func (g *Gazetteer) hintSet(domains []string) map[string]struct{} {
	for _, d := range domains {
		if set, ok := g.domainHints[strings.ToLower(d)]; ok && len(set) > 0 {
			return set
		}
	}
	return nil
}

func sortEntities(entities []hub.Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Importance != entities[j].Importance {
			return entities[i].Importance > entities[j].Importance
		}
		return entities[i].ID < entities[j].ID
	})
}

// Slugify lowercases a display name and joins words with hyphens, the form
// most news sites use in section paths.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
