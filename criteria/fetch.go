package criteria

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/zoobzio/tofu"
)

// eagerLoad fills every root association set to FetchJoin, with one IN query per
// association. rows is the []E the root query scanned into.
func (c *Scope) eagerLoad(ctx context.Context, rows reflect.Value) error {
	if rows.Len() == 0 {
		return nil
	}

	names := make([]string, 0, len(c.fetchModes))
	for name, mode := range c.fetchModes {
		if mode == tofu.FetchJoin {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		a := c.entity.assocs[name]
		target, err := c.session.registry.entity(a.target)
		if err != nil {
			return err
		}
		if a.many {
			err = c.loadMany(ctx, rows, a, target)
		} else {
			err = c.loadOne(ctx, rows, a, target)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// loadOne resolves a to-one association through the owner's foreign key column.
func (c *Scope) loadOne(ctx context.Context, rows reflect.Value, a *association, target *entity) error {
	fk, ok := c.entity.byColumn[a.ref]
	if !ok {
		return fmt.Errorf("criteria: fetch %s.%s: foreign key %q is not a mapped column of %s: %w",
			c.entity.name, a.field, a.ref, c.entity.name, ErrInvalidAssociation)
	}

	keys := collectKeys(rows, fk.index)
	if len(keys) == 0 {
		return nil
	}
	related, err := c.session.fetchRelated(ctx, target, target.pk, keys)
	if err != nil {
		return err
	}

	byKey := make(map[string]reflect.Value, related.Len())
	for i := 0; i < related.Len(); i++ {
		r := related.Index(i)
		byKey[keyOf(r.FieldByIndex(target.pk.index))] = r
	}

	for i := 0; i < rows.Len(); i++ {
		row := rows.Index(i)
		r, ok := byKey[keyOf(row.FieldByIndex(fk.index))]
		if !ok {
			continue
		}
		ptr := reflect.New(target.typ)
		ptr.Elem().Set(r)
		row.FieldByIndex(a.index).Set(ptr)
	}
	return nil
}

// loadMany resolves a to-many association through the target's foreign key column.
func (c *Scope) loadMany(ctx context.Context, rows reflect.Value, a *association, target *entity) error {
	fk, ok := target.byColumn[a.ref]
	if !ok {
		return fmt.Errorf("criteria: fetch %s.%s: foreign key %q is not a mapped column of %s: %w",
			c.entity.name, a.field, a.ref, target.name, ErrInvalidAssociation)
	}

	keys := collectKeys(rows, c.entity.pk.index)
	if len(keys) == 0 {
		return nil
	}
	related, err := c.session.fetchRelated(ctx, target, fk, keys)
	if err != nil {
		return err
	}

	groups := make(map[string][]reflect.Value)
	for i := 0; i < related.Len(); i++ {
		r := related.Index(i)
		k := keyOf(r.FieldByIndex(fk.index))
		groups[k] = append(groups[k], r)
	}

	for i := 0; i < rows.Len(); i++ {
		row := rows.Index(i)
		field := row.FieldByIndex(a.index)
		group := groups[keyOf(row.FieldByIndex(c.entity.pk.index))]
		out := reflect.MakeSlice(field.Type(), 0, len(group))
		for _, r := range group {
			if a.refs {
				ptr := reflect.New(target.typ)
				ptr.Elem().Set(r)
				out = reflect.Append(out, ptr)
				continue
			}
			out = reflect.Append(out, r)
		}
		field.Set(out)
	}
	return nil
}

// fetchRelated selects every target row whose column matches one of keys.
func (s *Session) fetchRelated(ctx context.Context, target *entity, match *column, keys []any) (reflect.Value, error) {
	cols := make([]string, len(target.columns))
	for i, col := range target.columns {
		cols[i] = "t0." + quote(col.name)
	}
	query, args, err := squirrel.StatementBuilder.
		PlaceholderFormat(s.dialect.placeholder()).
		Select(cols...).
		From(quote(target.table) + " t0").
		Where(squirrel.Eq{"t0." + quote(match.name): keys}).
		OrderBy("t0." + quote(target.pk.name)).
		ToSql()
	if err != nil {
		return reflect.Value{}, err
	}

	dest := reflect.New(reflect.SliceOf(target.typ))
	if err := s.selectContext(ctx, target.table, dest.Interface(), query, args...); err != nil {
		return reflect.Value{}, err
	}
	return dest.Elem(), nil
}

// collectKeys returns the distinct non-null values of the field at index.
func collectKeys(rows reflect.Value, index []int) []any {
	seen := make(map[string]bool, rows.Len())
	keys := make([]any, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		v := rows.Index(i).FieldByIndex(index)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		k := keyOf(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, v.Interface())
	}
	return keys
}

// keyOf renders a key value for matching, treating *K and K alike.
func keyOf(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	return fmt.Sprint(v.Interface())
}
