package criteria

import (
	"fmt"
	"math"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/zoobzio/tofu"
)

// Render returns the SQL and arguments the criteria tree would run.
func (c *Scope) Render() (string, []any, error) {
	b, err := c.root.builder()
	if err != nil {
		return "", nil, err
	}
	return b.ToSql()
}

func (c *Scope) builder() (squirrel.SelectBuilder, error) {
	q := c.query
	d := c.session.dialect
	sb := squirrel.StatementBuilder.PlaceholderFormat(d.placeholder())

	var b squirrel.SelectBuilder
	switch {
	case q.projection == tofu.RowCount && q.distinct:
		b = sb.Select("COUNT(DISTINCT " + c.ref(c.entity.pk) + ")")
	case q.projection == tofu.RowCount:
		b = sb.Select("COUNT(*)")
	default:
		cols := make([]string, len(c.entity.columns))
		for i, col := range c.entity.columns {
			cols[i] = c.ref(col)
		}
		b = sb.Select(cols...)
		if q.distinct {
			b = b.Distinct()
		}
	}
	b = b.From(quote(c.entity.table) + " " + c.alias)

	var err error
	c.walk(func(s *Scope) bool {
		if s != c {
			b = b.Join(s.joinClause())
		}
		for _, p := range s.restrictions {
			var cond squirrel.Sqlizer
			if cond, err = s.condition(p); err != nil {
				return false
			}
			b = b.Where(cond)
		}
		return true
	})
	if err != nil {
		return b, err
	}

	if q.projection != tofu.RowCount {
		for _, o := range q.orders {
			col, err := o.scope.column(o.order.Property)
			if err != nil {
				return b, err
			}
			dir := " ASC"
			if o.order.Descending {
				dir = " DESC"
			}
			b = b.OrderBy(o.scope.ref(col) + dir)
		}
	}

	if q.max > 0 {
		b = b.Limit(uint64(q.max))
	}
	if q.first > 0 {
		if q.max <= 0 && d == SQLite {
			b = b.Limit(math.MaxInt64)
		}
		b = b.Offset(uint64(q.first))
	}
	return b, nil
}

// walk visits the scope tree depth first, parents before children.
func (c *Scope) walk(fn func(*Scope) bool) bool {
	if !fn(c) {
		return false
	}
	for _, child := range c.children {
		if !child.walk(fn) {
			return false
		}
	}
	return true
}

// joinClause renders the INNER JOIN of this scope onto its parent.
func (c *Scope) joinClause() string {
	p := c.parent
	var on string
	if c.assoc.many {
		on = c.alias + "." + quote(c.assoc.ref) + " = " + p.ref(p.entity.pk)
	} else {
		on = p.alias + "." + quote(c.assoc.ref) + " = " + c.ref(c.entity.pk)
	}
	return quote(c.entity.table) + " " + c.alias + " ON " + on
}

func (c *Scope) ref(col *column) string {
	return c.alias + "." + quote(col.name)
}

// condition translates one predicate into a squirrel expression on this scope.
func (c *Scope) condition(p tofu.Predicate) (squirrel.Sqlizer, error) {
	col, err := c.column(p.Property())
	if err != nil {
		return nil, err
	}
	ref := c.ref(col)

	switch p.Op() {
	case tofu.OpEq:
		return squirrel.Eq{ref: p.Value()}, nil
	case tofu.OpNotEq:
		return not{squirrel.Eq{ref: p.Value()}}, nil
	case tofu.OpLt:
		return squirrel.Lt{ref: p.Value()}, nil
	case tofu.OpLe:
		return squirrel.LtOrEq{ref: p.Value()}, nil
	case tofu.OpGt:
		return squirrel.Gt{ref: p.Value()}, nil
	case tofu.OpGe:
		return squirrel.GtOrEq{ref: p.Value()}, nil
	case tofu.OpIn:
		return squirrel.Eq{ref: p.Values()}, nil
	case tofu.OpIsNull:
		return squirrel.Eq{ref: nil}, nil
	case tofu.OpIsNotNull:
		return squirrel.NotEq{ref: nil}, nil
	case tofu.OpLike:
		if c.session.dialect == SQLite {
			// SQLite LIKE folds ASCII case; GLOB does not.
			return squirrel.Expr(ref+" GLOB ?", globPattern(fmt.Sprint(p.Value()))), nil
		}
		return squirrel.Like{ref: p.Value()}, nil
	case tofu.OpILike:
		if c.session.dialect == Postgres {
			return squirrel.ILike{ref: p.Value()}, nil
		}
		return squirrel.Expr("LOWER("+ref+") LIKE LOWER(?)", p.Value()), nil
	default:
		return nil, fmt.Errorf("criteria: unsupported operator %q on %s.%s", p.Op(), c.entity.name, p.Property())
	}
}

// globPattern translates a LIKE pattern into a GLOB pattern: % and _ become * and ?,
// and characters GLOB treats as special are matched literally.
func globPattern(like string) string {
	var b strings.Builder
	for _, r := range like {
		switch r {
		case '%':
			b.WriteByte('*')
		case '_':
			b.WriteByte('?')
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// not negates an expression.
type not struct {
	squirrel.Sqlizer
}

func (n not) ToSql() (string, []any, error) {
	sql, args, err := n.Sqlizer.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", args, nil
}

// quote double-quotes an identifier, which both dialects accept.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
