package translate

import (
	"fmt"
	"strings"

	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/query"
	"github.com/roach88/fragio/internal/submission"
)

// Translator turns submission queries into Plans for one SQL dialect.
//
// Clause order per operation is fixed, since callers compare output
// literally:
//
//	create_frag_select: head, fields, from, where, group, order, limit
//	select:             SELECT, fields, from, where, order, limit
//	insert:             head, insert values
//	multi_insert:       head, multi-insert values
//	create_frag, drop_frag, create_database, drop_database: head only
//	function:           built-in shape, or CALL name(args)
type Translator struct {
	Dialect *Dialect

	// MaxLength caps statement length; 0 means DefaultMaxLength.
	MaxLength int
}

// New creates a Translator for d with the default length ceiling.
func New(d *Dialect) *Translator {
	return &Translator{Dialect: d, MaxLength: DefaultMaxLength}
}

// Setup parses a submission query and produces its Plan.
//
// When text contains a bind placeholder and binds is non-nil the plan is
// prepared, and len(binds) must equal the placeholder count of the
// translated statement. Otherwise the plan is ready text.
func (t *Translator) Setup(text string, binds []query.BindArg) (*query.Plan, error) {
	args, err := submission.Parse(text)
	if err != nil {
		return nil, err
	}
	tag, err := args.Require(submission.ArgOperation)
	if err != nil {
		return nil, err
	}
	op, err := query.ParseOperation(tag)
	if err != nil {
		return nil, err
	}

	sql, err := t.Translate(op, args)
	if err != nil {
		return nil, err
	}

	if binds == nil || !query.HasPlaceholder(text) {
		return query.NewTextPlan(op, sql), nil
	}

	if n := query.CountPlaceholders(sql); n != len(binds) {
		return nil, ioerr.New(ioerr.InvalidParameter, "statement has %d placeholders but %d bind arguments", n, len(binds))
	}
	for i, b := range binds {
		if !b.Type.Valid() {
			return nil, ioerr.New(ioerr.InvalidParameter, "bind argument %d has unmapped type %d", i, int(b.Type))
		}
	}
	if t.Dialect.Placeholder != nil {
		sql = rebind(sql, t.Dialect.Placeholder)
	}
	return query.NewPreparedPlan(op, sql, binds), nil
}

// Translate composes the statement for op from args.
func (t *Translator) Translate(op query.Operation, args submission.ArgumentMap) (string, error) {
	if args == nil {
		return "", ioerr.New(ioerr.NullParameter, "argument map is nil")
	}
	d := t.Dialect
	tr := &translation{d: d, args: args, b: newBuilder(t.MaxLength)}

	var err error
	switch op {
	case query.CreateFragSelect:
		err = tr.run(
			func() error { return tr.headIf(d.CreateFragSelect, submission.ArgFragName, op) },
			tr.fieldBlock, tr.fromBlock, tr.whereBlock, tr.groupBlock, tr.orderBlock, tr.limitBlock,
		)
	case query.Select:
		err = tr.run(
			func() error { return tr.b.write(d.SelectHead) },
			tr.fieldBlock, tr.fromBlock, tr.whereBlock, tr.orderBlock, tr.limitBlock,
		)
	case query.Insert:
		err = tr.run(
			func() error { return tr.headIf(d.InsertHead, submission.ArgFragName, op) },
			tr.insertValuesBlock,
		)
	case query.MultiInsert:
		err = tr.run(
			func() error { return tr.headIf(d.InsertHead, submission.ArgFragName, op) },
			tr.multiInsertValuesBlock,
		)
	case query.CreateFrag:
		err = tr.headIf(d.CreateFrag, submission.ArgFragName, op)
	case query.DropFrag:
		err = tr.headIf(d.DropFrag, submission.ArgFragName, op)
	case query.CreateDatabase:
		err = tr.headIf(d.CreateDatabase, submission.ArgDBName, op)
	case query.DropDatabase:
		err = tr.headIf(d.DropDatabase, submission.ArgDBName, op)
	case query.Function:
		err = tr.function()
	default:
		err = unsupported(d, op)
	}
	if err != nil {
		return "", err
	}
	return tr.b.String(), nil
}

func unsupported(d *Dialect, op query.Operation) error {
	return ioerr.New(ioerr.InvalidParameter, "operation %s is not supported by the %s dialect", op, d.Name)
}

// run executes clause writers in order, stopping at the first error.
func (t *translation) run(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (t *translation) headIf(template, arg string, op query.Operation) error {
	if template == "" {
		return unsupported(t.d, op)
	}
	return t.head(template, arg)
}

// function writes a reserved built-in's fixed shape, or CALL name(args).
func (t *translation) function() error {
	name, err := t.args.Require(submission.ArgFuncName)
	if err != nil {
		return err
	}

	builtin, ok := t.d.Builtins[name]
	if !ok {
		if err := t.b.write(fmt.Sprintf(t.d.Call, name)); err != nil {
			return err
		}
		return t.functionArgsBlock()
	}

	if builtin.Arity == VariadicArity {
		if _, err := t.args.Require(submission.ArgArg); err != nil {
			return err
		}
		head, err := t.expand(builtin.Template)
		if err != nil {
			return err
		}
		if err := t.b.write(head); err != nil {
			return err
		}
		return t.functionArgsBlock()
	}

	var tokens []any
	if args, ok := t.args.Multi(submission.ArgArg); ok {
		for _, tok := range args.Strings() {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) != builtin.Arity {
		return ioerr.New(ioerr.InvalidParameter, "function %s takes %d arguments, got %d", name, builtin.Arity, len(tokens))
	}
	stmt, err := t.expand(fmt.Sprintf(builtin.Template, tokens...))
	if err != nil {
		return err
	}
	return t.b.write(stmt)
}

// rebind rewrites each top-level '?' with format(n).
func rebind(sql string, format func(int) string) string {
	var sb strings.Builder
	n := 0
	inLiteral := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			sb.WriteByte(c)
		case c == query.BindPlaceholder && !inLiteral:
			n++
			sb.WriteString(format(n))
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
