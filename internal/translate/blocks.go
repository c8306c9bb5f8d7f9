package translate

import (
	"fmt"

	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/submission"
)

// translation is the state of one statement being composed.
type translation struct {
	d    *Dialect
	args submission.ArgumentMap
	b    *builder
}

func (t *translation) expand(tok string) (string, error) {
	return expandMacros(tok, t.d.Macros)
}

// head writes a one-identifier template such as "DROP TABLE IF EXISTS %s".
func (t *translation) head(template, arg string) error {
	name, err := t.args.Require(arg)
	if err != nil {
		return err
	}
	return t.b.write(fmt.Sprintf(template, name))
}

// pairBlock writes "x AS a, y AS b" from a list argument and its optional
// alias argument. Alias counts must match; an empty alias is omitted.
func (t *translation) pairBlock(listArg, aliasArg string) error {
	list, err := t.args.RequireMulti(listArg)
	if err != nil {
		return err
	}
	aliases, hasAliases := t.args.Multi(aliasArg)
	if hasAliases && aliases.Len() != list.Len() {
		return ioerr.New(ioerr.InvalidParameter, "%d %s values but %d %s values",
			list.Len(), listArg, aliases.Len(), aliasArg)
	}

	for i := 0; i < list.Len(); i++ {
		if i > 0 {
			if err := t.b.write(", "); err != nil {
				return err
			}
		}
		tok, err := t.expand(list.At(i))
		if err != nil {
			return err
		}
		if err := t.b.write(tok); err != nil {
			return err
		}
		if hasAliases && aliases.At(i) != "" {
			if err := t.b.write(" AS ", aliases.At(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// fieldBlock writes the projected fields with their select aliases.
func (t *translation) fieldBlock() error {
	return t.pairBlock(submission.ArgField, submission.ArgSelectAlias)
}

// fromBlock writes " FROM " and the sources with their aliases.
func (t *translation) fromBlock() error {
	if err := t.b.write(" FROM "); err != nil {
		return err
	}
	return t.pairBlock(submission.ArgFrom, submission.ArgFromAlias)
}

// whereBlock writes the simple WHERE clause, falling back to the ternary
// form when no where argument is given.
func (t *translation) whereBlock() error {
	where, ok := t.args.Lookup(submission.ArgWhere)
	if !ok {
		return t.ternaryWhereBlock()
	}
	expr, err := t.expand(where)
	if err != nil {
		return err
	}
	return t.b.write(" WHERE ", expr)
}

// ternaryWhereBlock writes " WHERE <left> [<cond> [<right>]]". Each stage is
// only read when the previous one is present.
func (t *translation) ternaryWhereBlock() error {
	left, ok := t.args.Lookup(submission.ArgWhereLeft)
	if !ok {
		return nil
	}
	expr, err := t.expand(left)
	if err != nil {
		return err
	}
	if err := t.b.write(" WHERE ", expr); err != nil {
		return err
	}

	cond, ok := t.args.Lookup(submission.ArgWhereCond)
	if !ok {
		return nil
	}
	if err := t.b.write(" ", cond); err != nil {
		return err
	}

	right, ok := t.args.Lookup(submission.ArgWhereRight)
	if !ok {
		return nil
	}
	expr, err = t.expand(right)
	if err != nil {
		return err
	}
	return t.b.write(" ", expr)
}

// listBlock writes keyword followed by the expanded tokens of arg joined by ", ".
// It writes nothing when arg is absent.
func (t *translation) listBlock(keyword, arg string) (bool, error) {
	list, ok := t.args.Multi(arg)
	if !ok {
		return false, nil
	}
	if err := t.b.write(keyword); err != nil {
		return false, err
	}
	for i := 0; i < list.Len(); i++ {
		if i > 0 {
			if err := t.b.write(", "); err != nil {
				return false, err
			}
		}
		tok, err := t.expand(list.At(i))
		if err != nil {
			return false, err
		}
		if err := t.b.write(tok); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (t *translation) groupBlock() error {
	_, err := t.listBlock(" GROUP BY ", submission.ArgGroup)
	return err
}

// orderBlock writes ORDER BY and, only when an order is present, its direction.
func (t *translation) orderBlock() error {
	present, err := t.listBlock(" ORDER BY ", submission.ArgOrder)
	if err != nil || !present {
		return err
	}
	if dir, ok := t.args.Lookup(submission.ArgOrderDir); ok {
		return t.b.write(" ", dir)
	}
	return nil
}

// limitBlock accepts "count" or "offset|count".
func (t *translation) limitBlock() error {
	limit, ok := t.args.Multi(submission.ArgLimit)
	if !ok {
		return nil
	}
	switch limit.Len() {
	case 1:
		return t.b.write(t.d.Limit("", limit.At(0)))
	case 2:
		return t.b.write(t.d.Limit(limit.At(0), limit.At(1)))
	default:
		return ioerr.New(ioerr.InvalidParameter, "limit takes one or two values, got %d", limit.Len())
	}
}

// writeGroup writes "(a,b,c)" from tokens[from:to].
func (t *translation) writeGroup(list submission.MultiValue, from, to int) error {
	if err := t.b.write("("); err != nil {
		return err
	}
	for i := from; i < to; i++ {
		if i > from {
			if err := t.b.write(","); err != nil {
				return err
			}
		}
		if err := t.b.write(list.At(i)); err != nil {
			return err
		}
	}
	return t.b.write(")")
}

// insertValuesBlock writes "(f1,...,fn) VALUES (v1,...,vn)" for a single row.
func (t *translation) insertValuesBlock() error {
	fields, err := t.args.RequireMulti(submission.ArgField)
	if err != nil {
		return err
	}
	values, err := t.args.RequireMulti(submission.ArgValue)
	if err != nil {
		return err
	}
	if fields.Len() != values.Len() {
		return ioerr.New(ioerr.InvalidParameter, "%d fields but %d values", fields.Len(), values.Len())
	}

	if err := t.writeGroup(fields, 0, fields.Len()); err != nil {
		return err
	}
	if err := t.b.write(" VALUES "); err != nil {
		return err
	}
	return t.writeGroup(values, 0, values.Len())
}

// multiInsertValuesBlock writes one parenthesized row group per field-count
// slice of the values, joined by commas.
func (t *translation) multiInsertValuesBlock() error {
	fields, err := t.args.RequireMulti(submission.ArgField)
	if err != nil {
		return err
	}
	values, err := t.args.RequireMulti(submission.ArgValue)
	if err != nil {
		return err
	}
	n := fields.Len()
	if values.Len()%n != 0 {
		return ioerr.New(ioerr.InvalidParameter, "%d values is not a multiple of %d fields", values.Len(), n)
	}

	if err := t.writeGroup(fields, 0, n); err != nil {
		return err
	}
	if err := t.b.write(" VALUES "); err != nil {
		return err
	}
	for row := 0; row*n < values.Len(); row++ {
		if row > 0 {
			if err := t.b.write(","); err != nil {
				return err
			}
		}
		if err := t.writeGroup(values, row*n, row*n+n); err != nil {
			return err
		}
	}
	return nil
}

// functionArgsBlock writes "a1,...,an)" from the arg argument, or ")" when absent.
func (t *translation) functionArgsBlock() error {
	args, ok := t.args.Multi(submission.ArgArg)
	if ok {
		for i := 0; i < args.Len(); i++ {
			if i > 0 {
				if err := t.b.write(","); err != nil {
					return err
				}
			}
			tok, err := t.expand(args.At(i))
			if err != nil {
				return err
			}
			if err := t.b.write(tok); err != nil {
				return err
			}
		}
	}
	return t.b.write(")")
}
