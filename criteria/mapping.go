package criteria

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unicode"
)

// Tabler overrides the table name derived from an entity's type name.
type Tabler interface {
	TableName() string
}

// entity is the mapping metadata of one struct type.
type entity struct {
	typ      reflect.Type
	name     string
	table    string
	pk       *column
	columns  []*column
	fields   map[string]*column
	byColumn map[string]*column
	assocs   map[string]*association
}

// column maps a struct field to a table column.
type column struct {
	field       string
	name        string
	index       []int
	constraints []string
	nullable    bool
}

// association maps a ref-tagged field to a related entity.
//
// For a to-one association ref names the foreign key column on the owner, which
// references the target's primary key. For a to-many association ref names the
// foreign key column on the target, which references the owner's primary key.
type association struct {
	field  string
	index  []int
	target reflect.Type
	many   bool
	refs   bool
	ref    string
}

func (a *association) kind() string {
	if a.many {
		return "many"
	}
	return "one"
}

// registry caches entity metadata per type.
type registry struct {
	mu       sync.RWMutex
	entities map[reflect.Type]*entity
}

func newRegistry() *registry {
	return &registry{entities: make(map[reflect.Type]*entity)}
}

func (r *registry) entity(t reflect.Type) (*entity, error) {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("criteria: %v is not a struct: %w", t, ErrUnmappedEntity)
	}

	r.mu.RLock()
	e, ok := r.entities[t]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	e, err := parseEntity(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entities[t]; ok {
		return existing, nil
	}
	r.entities[t] = e
	return e, nil
}

func parseEntity(t reflect.Type) (*entity, error) {
	e := &entity{
		typ:      t,
		name:     t.Name(),
		table:    tableName(t),
		fields:   make(map[string]*column),
		byColumn: make(map[string]*column),
		assocs:   make(map[string]*association),
	}
	if err := e.walk(t, nil); err != nil {
		return nil, err
	}

	if e.pk == nil {
		if c, ok := e.fields["ID"]; ok {
			e.pk = c
		}
	}
	if e.pk == nil {
		return nil, fmt.Errorf("criteria: %s: %w", e.name, ErrMissingPrimaryKey)
	}
	return e, nil
}

func (e *entity) walk(t reflect.Type, parent []int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(slices.Clone(parent), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("db") == "" {
			if err := e.walk(f.Type, index); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		if ref, ok := f.Tag.Lookup("ref"); ok {
			a, err := parseAssociation(f, index, ref)
			if err != nil {
				return fmt.Errorf("criteria: %s.%s: %w", e.name, f.Name, err)
			}
			e.assocs[a.field] = a
			continue
		}

		name := f.Tag.Get("db")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}

		c := &column{
			field:       f.Name,
			name:        name,
			index:       index,
			constraints: parseConstraints(f.Tag.Get("constraints")),
			nullable:    f.Type.Kind() == reflect.Pointer,
		}
		e.columns = append(e.columns, c)
		e.fields[c.field] = c
		e.byColumn[c.name] = c
		if e.pk == nil && slices.Contains(c.constraints, "primarykey") {
			e.pk = c
		}
	}
	return nil
}

func parseAssociation(f reflect.StructField, index []int, ref string) (*association, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty ref tag: %w", ErrInvalidAssociation)
	}
	a := &association{field: f.Name, index: index, ref: ref}

	t := f.Type
	switch {
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		a.target = t.Elem()
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Struct:
		a.target, a.many = t.Elem(), true
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Pointer && t.Elem().Elem().Kind() == reflect.Struct:
		a.target, a.many, a.refs = t.Elem().Elem(), true, true
	default:
		return nil, fmt.Errorf("%s must be *T, []T, or []*T: %w", t, ErrInvalidAssociation)
	}
	return a, nil
}

func tableName(t reflect.Type) string {
	if tb, ok := reflect.New(t).Interface().(Tabler); ok {
		return tb.TableName()
	}
	return snakeCase(t.Name())
}

// snakeCase converts a Go identifier to snake_case, keeping acronyms together:
// OrderLine -> order_line, HTTPRequest -> http_request.
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// parseConstraints splits a comma-separated constraints tag.
func parseConstraints(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
