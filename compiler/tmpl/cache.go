package tmpl

import (
	"fmt"
	"sort"
	"sync"
)

// Cache holds parsed templates keyed by name. Each name is parsed once; later
// calls return the same tree. Reads after population take no lock. A Cache is
// safe for concurrent use and needs no teardown.
type Cache struct {
	mu        sync.Mutex
	templates sync.Map // name => *Template
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Parse returns the template cached under name, parsing text on first use.
// Failed parses are not cached.
func (c *Cache) Parse(name, text string) (*Template, error) {
	if t, ok := c.Lookup(name); ok {
		return t, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.Lookup(name); ok {
		return t, nil
	}
	t, err := Parse(name, text)
	if err != nil {
		return nil, err
	}
	c.templates.Store(name, t)
	return t, nil
}

// MustParse is like Parse but panics on error. It is meant for templates that
// ship with the program and are loaded at start-up.
func (c *Cache) MustParse(name, text string) *Template {
	return Must(c.Parse(name, text))
}

// Lookup returns the template cached under name.
func (c *Cache) Lookup(name string) (*Template, bool) {
	v, ok := c.templates.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Template), true
}

// Names returns the cached template names, sorted.
func (c *Cache) Names() []string {
	var names []string
	c.templates.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Render renders the template cached under name.
func (c *Cache) Render(name string, ctx Context) (string, error) {
	t, ok := c.Lookup(name)
	if !ok {
		return "", fmt.Errorf("tmpl: template %q is not parsed", name)
	}
	return Render(t, ctx)
}
