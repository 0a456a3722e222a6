package stations

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PathSeparator joins category names into an address from the catalog root.
const PathSeparator = "|"

// ErrNotFound reports an unknown station id or an unresolvable category path.
var ErrNotFound = errors.New("not found")

// Node is a single entry in the catalog tree, either a *Category or a *Station.
type Node interface {
	DisplayName() string
}

// Station is a leaf entry: a display name, a playback URL as supplied by the
// source document, and the id assigned at build time.
type Station struct {
	Name string
	URL  string
	ID   int
}

func (s *Station) DisplayName() string { return s.Name }

// Category is a named internal node. Children keep the as-stored document
// order; display order is computed on demand.
type Category struct {
	Name string

	children []Node
	byName   map[string]Node
}

func (c *Category) DisplayName() string { return c.Name }

// Len reports the number of direct children.
func (c *Category) Len() int { return len(c.children) }

// Sorted returns the direct children in display order, case-insensitive by
// name. Ties keep the as-stored order.
func (c *Category) Sorted() []Node {
	out := make([]Node, len(c.children))
	copy(out, c.children)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName()) < strings.ToLower(out[j].DisplayName())
	})
	return out
}

// Catalog is one immutable generation of the station directory.
type Catalog struct {
	root *Category
	byID map[int]*Station
}

// Parse decodes a YAML station list and builds a catalog from it. The
// document must be a mapping; anything else is a fatal configuration error.
// Parsing walks the yaml Node tree rather than a map so that the document's
// own element order is preserved, which the id assignment depends on.
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode station list")
	}

	c := &Catalog{byID: make(map[int]*Station)}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		// An empty document is an empty catalog.
		c.root = &Category{byName: make(map[string]Node)}
		return c, nil
	}

	top := resolved(doc.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, errors.Errorf("station list is not a mapping (line %d)", top.Line)
	}

	root, _, err := c.buildCategory("", top, 1)
	if err != nil {
		return nil, err
	}
	c.root = root

	return c, nil
}

// buildCategory walks one mapping in document order, assigning each station
// the next id in pre-order, recursing into child categories as they are
// encountered. Rebuilding from an unchanged document reproduces identical
// ids.
func (c *Catalog) buildCategory(name string, mapping *yaml.Node, nextID int) (*Category, int, error) {
	cat := &Category{
		Name:   name,
		byName: make(map[string]Node, len(mapping.Content)/2),
	}

	// Mapping content alternates key and value nodes.
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode := resolved(mapping.Content[i])
		valueNode := resolved(mapping.Content[i+1])

		if keyNode.Kind != yaml.ScalarNode {
			return nil, 0, errors.Errorf("category %q: non-scalar key (line %d)", name, keyNode.Line)
		}
		key := keyNode.Value
		if _, dup := cat.byName[key]; dup {
			return nil, 0, errors.Errorf("category %q: duplicate entry %q (line %d)", name, key, keyNode.Line)
		}

		switch {
		case valueNode.Kind == yaml.MappingNode:
			child, id, err := c.buildCategory(key, valueNode, nextID)
			if err != nil {
				return nil, 0, err
			}
			nextID = id
			cat.children = append(cat.children, child)
			cat.byName[key] = child
		case valueNode.Kind == yaml.ScalarNode && valueNode.Tag == "!!str":
			station := &Station{Name: key, URL: valueNode.Value, ID: nextID}
			c.byID[nextID] = station
			nextID++
			cat.children = append(cat.children, station)
			cat.byName[key] = station
		default:
			return nil, 0, errors.Errorf("category %q: entry %q is neither a mapping nor a string (line %d)", name, key, valueNode.Line)
		}
	}

	return cat, nextID, nil
}

func resolved(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

// Root returns the top-level category.
func (c *Catalog) Root() *Category { return c.root }

// Stations reports the total number of stations in the catalog.
func (c *Catalog) Stations() int { return len(c.byID) }

// ByID looks a station up by its assigned id.
func (c *Catalog) ByID(id int) (*Station, error) {
	station, ok := c.byID[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no station with id %d", id)
	}

	return station, nil
}

// ResolvePath walks from the root following the pipe-delimited category
// names. Every segment, including the last, must address a category; an
// absent segment or one addressing a station yields ErrNotFound.
func (c *Catalog) ResolvePath(path string) (*Category, error) {
	current := c.root
	for _, segment := range strings.Split(path, PathSeparator) {
		child, ok := current.byName[segment]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "no category %q", segment)
		}

		sub, ok := child.(*Category)
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "%q is a station, not a category", segment)
		}
		current = sub
	}

	return current, nil
}
