package load

import (
	"errors"
)

// Scanned holds the recognised tags of one declaration, in source order.
type Scanned struct {
	Declaration *Declaration
	// Tags are the class-level tags.
	Tags []Tag
	// Accessors holds one entry per declared accessor, including accessors
	// without recognised tags.
	Accessors []ScannedAccessor
}

// ScannedAccessor holds the recognised tags of one accessor.
type ScannedAccessor struct {
	Name string
	Pos  string
	Tags []Tag
}

// Scan reads the raw tag text of a declaration. Unrecognised tag names are
// dropped; malformed tag text fails with a *TagError carrying the class and
// accessor names.
func Scan(d *Declaration) (*Scanned, error) {
	s := &Scanned{Declaration: d}
	for _, raw := range d.Tags {
		tags, err := ScanTags(raw)
		if err != nil {
			return nil, withSite(err, d.Name, "")
		}
		s.Tags = append(s.Tags, known(tags)...)
	}
	for _, a := range d.Accessors {
		tags, err := ScanTags(a.Tag)
		if err != nil {
			return nil, withSite(err, d.Name, a.Name)
		}
		s.Accessors = append(s.Accessors, ScannedAccessor{
			Name: a.Name,
			Pos:  a.Pos,
			Tags: known(tags),
		})
	}
	return s, nil
}

// Lookup returns the first tag with the given name.
func Lookup(tags []Tag, name string) (Tag, bool) {
	for _, t := range tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}

func known(tags []Tag) []Tag {
	out := tags[:0:0]
	for _, t := range tags {
		if knownTags[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

func withSite(err error, class, accessor string) error {
	var te *TagError
	if errors.As(err, &te) {
		te.Class, te.Accessor = class, accessor
	}
	return err
}
