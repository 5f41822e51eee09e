package exercise

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// ErrProfileNotFound is returned when a variation id is not in the catalog.
	ErrProfileNotFound = errors.New("exercise: profile not found")

	// ErrInvalidProfile is returned when catalog data is malformed.
	ErrInvalidProfile = errors.New("exercise: invalid profile data")
)

//go:embed profiles.yaml
var builtinProfiles []byte

// Profile is display metadata for one exercise variation.
type Profile struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Difficulty  string         `yaml:"difficulty" json:"difficulty"`
	Description string         `yaml:"description" json:"description"`
	Tips        []string       `yaml:"tips" json:"tips"`
	BodyFocus   map[string]int `yaml:"body_focus" json:"body_focus"`
}

func (p Profile) clone() Profile {
	c := p
	c.Tips = append([]string(nil), p.Tips...)
	c.BodyFocus = make(map[string]int, len(p.BodyFocus))
	for k, v := range p.BodyFocus {
		c.BodyFocus[k] = v
	}
	return c
}

func (p Profile) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: profile without id", ErrInvalidProfile)
	}
	for group, pct := range p.BodyFocus {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%w: %s body focus %s=%d outside 0-100", ErrInvalidProfile, p.ID, group, pct)
		}
	}
	return nil
}

// Catalog is a read-only set of profiles. Accessors return copies.
type Catalog struct {
	profiles map[string]Profile
	order    []string
}

type catalogFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}

	c := &Catalog{profiles: make(map[string]Profile, len(file.Profiles))}
	for _, p := range file.Profiles {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.profiles[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidProfile, p.ID)
		}
		c.profiles[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogErr  error
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the built-in push-up variation catalog.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseCatalog(builtinProfiles)
	})
	return defaultCatalog, defaultCatalogErr
}

// Lookup returns the profile for a variation id.
func (c *Catalog) Lookup(id string) (Profile, error) {
	p, ok := c.profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrProfileNotFound, id)
	}
	return p.clone(), nil
}

// List returns all profiles in catalog order.
func (c *Catalog) List() []Profile {
	list := make([]Profile, 0, len(c.order))
	for _, id := range c.order {
		list = append(list, c.profiles[id].clone())
	}
	return list
}

// IDs returns the variation ids sorted alphabetically.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}

// Len returns the number of profiles.
func (c *Catalog) Len() int {
	return len(c.order)
}
