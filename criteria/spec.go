package criteria

import (
	"encoding/json"

	"github.com/zoobzio/tofu"
)

// QuerySpec describes a criteria tree in a serializable format, for debugging and
// external tooling.
type QuerySpec struct {
	Root        ScopeSpec `json:"root"`
	Distinct    bool      `json:"distinct,omitempty"`
	FirstResult int       `json:"first_result,omitempty"`
	MaxResults  int       `json:"max_results,omitempty"`
	Projection  string    `json:"projection,omitempty"`
	SQL         string    `json:"sql"`
	Args        []any     `json:"args,omitempty"`
}

// ScopeSpec describes one scope of the tree.
type ScopeSpec struct {
	Entity       string            `json:"entity"`
	Table        string            `json:"table"`
	Alias        string            `json:"alias"`
	Association  string            `json:"association,omitempty"`
	Kind         string            `json:"kind,omitempty"` // "one" or "many"
	Restrictions []RestrictionSpec `json:"restrictions,omitempty"`
	Orders       []OrderSpec       `json:"orders,omitempty"`
	FetchModes   map[string]string `json:"fetch_modes,omitempty"`
	Children     []ScopeSpec       `json:"children,omitempty"`
}

// RestrictionSpec describes one restriction.
//
//	{"field": "Status", "column": "status", "operator": "=", "value": "open"}
type RestrictionSpec struct {
	Field    string `json:"field"`
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

// OrderSpec describes one ordering clause.
type OrderSpec struct {
	Field     string `json:"field"`
	Column    string `json:"column"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// Spec returns a description of the whole criteria tree this scope belongs to.
// SQL is empty when the tree does not render.
func (c *Scope) Spec() QuerySpec {
	root := c.root
	q := root.query
	spec := QuerySpec{
		Root:        root.scopeSpec(),
		Distinct:    q.distinct,
		FirstResult: q.first,
		MaxResults:  q.max,
	}
	if q.projection != tofu.NoProjection {
		spec.Projection = q.projection.String()
	}
	if sql, args, err := root.Render(); err == nil {
		spec.SQL, spec.Args = sql, args
	}
	return spec
}

// SpecJSON returns the criteria tree specification as a JSON string.
func (c *Scope) SpecJSON() (string, error) {
	data, err := json.MarshalIndent(c.Spec(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Scope) scopeSpec() ScopeSpec {
	spec := ScopeSpec{
		Entity: c.entity.name,
		Table:  c.entity.table,
		Alias:  c.alias,
	}
	if c.assoc != nil {
		spec.Association = c.path
		spec.Kind = c.assoc.kind()
	}

	for _, p := range c.restrictions {
		r := RestrictionSpec{
			Field:    p.Property(),
			Operator: string(p.Op()),
			Value:    p.Value(),
		}
		if col, err := c.column(p.Property()); err == nil {
			r.Column = col.name
		}
		spec.Restrictions = append(spec.Restrictions, r)
	}

	for _, o := range c.orders {
		order := OrderSpec{Field: o.Property, Direction: "asc"}
		if o.Descending {
			order.Direction = "desc"
		}
		if col, err := c.column(o.Property); err == nil {
			order.Column = col.name
		}
		spec.Orders = append(spec.Orders, order)
	}

	if len(c.fetchModes) > 0 {
		spec.FetchModes = make(map[string]string, len(c.fetchModes))
		for name, mode := range c.fetchModes {
			spec.FetchModes[name] = mode.String()
		}
	}

	for _, child := range c.children {
		spec.Children = append(spec.Children, child.scopeSpec())
	}
	return spec
}
