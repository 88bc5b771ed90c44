package rowexec

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/qiulin/qwery/ast"
	"github.com/qiulin/qwery/qerrors"
	"github.com/qiulin/qwery/runtime"
	"github.com/qiulin/qwery/value"
)

// aggValuesKey is the context key under which a finalized row's
// per-AggregateCall results are stashed so EvalExpr can resolve an
// AggregateCall appearing anywhere inside a projected expression (e.g.
// `COUNT(*) + 1 AS n`) without re-walking the group (spec.md §4.6).
type aggValuesKey struct{}

// withAggValues returns a context carrying the aggregate results computed
// for the row/group currently being projected.
func withAggValues(ctx context.Context, values map[*ast.AggregateCall]value.Value) context.Context {
	return context.WithValue(ctx, aggValuesKey{}, values)
}

func aggValuesFrom(ctx context.Context) map[*ast.AggregateCall]value.Value {
	v, _ := ctx.Value(aggValuesKey{}).(map[*ast.AggregateCall]value.Value)
	return v
}

// EvalExpr evaluates expr against the current row recorded in scope (via
// Scope.WithRow), resolving FieldRef/VariableRef/FunctionCall/Arithmetic/
// Cast/Case/Subquery/AggregateCall per spec.md §3's "Expression" variant
// list and §4.4's grammar.
func EvalExpr(ctx context.Context, env *Env, scope *runtime.Scope, expr ast.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return evalLiteral(e)

	case *ast.FieldRef:
		row, ok := scope.CurrentRow()
		if !ok {
			return value.Null, qerrors.Eval("field reference %q outside a row context", e.Name)
		}
		if e.Table != "" {
			if v, ok := row.Get(e.Table + "." + e.Name); ok {
				return v, nil
			}
		}
		if v, ok := row.Get(e.Name); ok {
			return v, nil
		}
		return value.Null, qerrors.Semantic(qerrors.PhaseEval, "unknown column %q", e.Name)

	case *ast.VariableRef:
		v, err := scope.LookupVariable(e.Name)
		if err != nil {
			return value.Null, err
		}
		return v.Value, nil

	case *ast.FunctionCall:
		return evalFunctionCall(ctx, env, scope, e)

	case *ast.AggregateCall:
		values := aggValuesFrom(ctx)
		if v, ok := values[e]; ok {
			return v, nil
		}
		return value.Null, qerrors.Semantic(qerrors.PhaseEval, "aggregate %s used outside an aggregated projection", e.Name)

	case *ast.Arithmetic:
		return evalArithmetic(ctx, env, scope, e)

	case *ast.Negate:
		v, err := EvalExpr(ctx, env, scope, e.Operand)
		if err != nil {
			return value.Null, err
		}
		if v.IsNull() {
			return value.Null, nil
		}
		f, ok := asFloat(v)
		if !ok {
			return value.Null, qerrors.Eval("cannot negate non-numeric value")
		}
		if v.Kind() == value.KInt64 {
			return value.NewInt64(-v.Int64()), nil
		}
		return value.NewFloat64(-f), nil

	case *ast.Cast:
		v, err := EvalExpr(ctx, env, scope, e.Operand)
		if err != nil {
			return value.Null, err
		}
		return evalCast(v, e.Type)

	case *ast.Case:
		for _, w := range e.Whens {
			ok, err := EvalCond(ctx, env, scope, w.When)
			if err != nil {
				return value.Null, err
			}
			if ok {
				return EvalExpr(ctx, env, scope, w.Then)
			}
		}
		if e.Else != nil {
			return EvalExpr(ctx, env, scope, e.Else)
		}
		return value.Null, nil

	case *ast.Subquery:
		return evalScalarSubquery(ctx, env, scope, e)

	case *ast.StarExpr:
		return value.Null, qerrors.Semantic(qerrors.PhaseCompile, "`*` is only legal in a projection list")

	default:
		return value.Null, qerrors.Eval("unsupported expression %T", expr)
	}
}

func evalLiteral(l *ast.Literal) (value.Value, error) {
	switch l.Kind {
	case ast.LitNull:
		return value.Null, nil
	case ast.LitBool:
		return value.NewBool(strings.EqualFold(l.Text, "true")), nil
	case ast.LitInt:
		n, err := strconv.ParseInt(l.Text, 10, 64)
		if err != nil {
			return value.Null, qerrors.EvalWrap(err, "parsing integer literal %q", l.Text)
		}
		return value.NewInt64(n), nil
	case ast.LitFloat:
		f, err := strconv.ParseFloat(l.Text, 64)
		if err != nil {
			return value.Null, qerrors.EvalWrap(err, "parsing numeric literal %q", l.Text)
		}
		return value.NewFloat64(f), nil
	case ast.LitString:
		return value.NewString(l.Text), nil
	default:
		return value.Null, qerrors.Eval("unsupported literal kind %v", l.Kind)
	}
}

func evalArithmetic(ctx context.Context, env *Env, scope *runtime.Scope, a *ast.Arithmetic) (value.Value, error) {
	left, err := EvalExpr(ctx, env, scope, a.Left)
	if err != nil {
		return value.Null, err
	}
	right, err := EvalExpr(ctx, env, scope, a.Right)
	if err != nil {
		return value.Null, err
	}

	if a.Op == ast.ArithConcat {
		if left.IsNull() || right.IsNull() {
			return value.Null, nil
		}
		return value.NewString(displayForConcat(left) + displayForConcat(right)), nil
	}

	if left.IsNull() || right.IsNull() {
		return value.Null, nil
	}
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return value.Null, qerrors.Eval("arithmetic on non-numeric operand")
	}
	bothInt := left.Kind() == value.KInt64 && right.Kind() == value.KInt64

	switch a.Op {
	case ast.ArithAdd:
		if bothInt {
			return value.NewInt64(left.Int64() + right.Int64()), nil
		}
		return value.NewFloat64(lf + rf), nil
	case ast.ArithSub:
		if bothInt {
			return value.NewInt64(left.Int64() - right.Int64()), nil
		}
		return value.NewFloat64(lf - rf), nil
	case ast.ArithMul:
		if bothInt {
			return value.NewInt64(left.Int64() * right.Int64()), nil
		}
		return value.NewFloat64(lf * rf), nil
	case ast.ArithDiv:
		if rf == 0 {
			return value.Null, qerrors.Eval("division by zero")
		}
		return value.NewFloat64(lf / rf), nil
	case ast.ArithMod:
		if rf == 0 {
			return value.Null, qerrors.Eval("modulo by zero")
		}
		if bothInt {
			return value.NewInt64(left.Int64() % right.Int64()), nil
		}
		return value.NewFloat64(float64(int64(lf) % int64(rf))), nil
	default:
		return value.Null, qerrors.Eval("unsupported arithmetic operator")
	}
}

func displayForConcat(v value.Value) string {
	if v.Kind() == value.KString {
		return v.String()
	}
	return v.Display()
}

func evalCast(v value.Value, typ ast.CastType) (value.Value, error) {
	if v.IsNull() {
		return value.Null, nil
	}
	switch typ {
	case ast.CastBoolean:
		switch v.Kind() {
		case value.KBool:
			return v, nil
		case value.KString:
			b, err := strconv.ParseBool(v.String())
			if err != nil {
				return value.Null, qerrors.EvalWrap(err, "casting %q to BOOLEAN", v.String())
			}
			return value.NewBool(b), nil
		case value.KInt64:
			return value.NewBool(v.Int64() != 0), nil
		case value.KFloat64:
			return value.NewBool(v.Float64() != 0), nil
		}
	case ast.CastInteger, ast.CastLong:
		switch v.Kind() {
		case value.KInt64:
			return v, nil
		case value.KFloat64:
			return value.NewInt64(int64(v.Float64())), nil
		case value.KString:
			n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
			if err != nil {
				return value.Null, qerrors.EvalWrap(err, "casting %q to INTEGER", v.String())
			}
			return value.NewInt64(n), nil
		case value.KBool:
			if v.Bool() {
				return value.NewInt64(1), nil
			}
			return value.NewInt64(0), nil
		}
	case ast.CastDouble:
		if f, ok := asFloat(v); ok {
			return value.NewFloat64(f), nil
		}
		if v.Kind() == value.KString {
			f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
			if err != nil {
				return value.Null, qerrors.EvalWrap(err, "casting %q to DOUBLE", v.String())
			}
			return value.NewFloat64(f), nil
		}
	case ast.CastString:
		return value.NewString(v.Display()), nil
	case ast.CastDate:
		switch v.Kind() {
		case value.KDate:
			return v, nil
		case value.KString:
			for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
				if t, err := time.Parse(layout, v.String()); err == nil {
					return value.NewDate(t), nil
				}
			}
			return value.Null, qerrors.Eval("casting %q to DATE: unrecognised format", v.String())
		}
	case ast.CastBinary:
		switch v.Kind() {
		case value.KBytes:
			return v, nil
		case value.KString:
			return value.NewBytes([]byte(v.String())), nil
		}
	}
	return value.Null, qerrors.Eval("cannot cast %s to the requested type", v.TypeName())
}

func asFloat(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KInt64:
		return float64(v.Int64()), true
	case value.KFloat64:
		return v.Float64(), true
	default:
		return 0, false
	}
}

func evalScalarSubquery(ctx context.Context, env *Env, scope *runtime.Scope, sub *ast.Subquery) (value.Value, error) {
	exec, err := CompileSelect(env, sub.Select)
	if err != nil {
		return value.Null, err
	}
	rs, err := exec.Execute(ctx, scope.Child())
	if err != nil {
		return value.Null, err
	}
	defer rs.Close(ctx)

	row, err := rs.Next(ctx)
	if err != nil {
		// An exhausted subquery evaluates to NULL, matching SQL's scalar
		// subquery convention for "no rows".
		return value.Null, nil
	}
	if row.Len() == 0 {
		return value.Null, nil
	}
	return row.At(0), nil
}

// scalarFunctions is the fixed table of built-in scalar functions
// recognised by a plain FunctionCall (spec.md §4.4); aggregate names are
// parsed as ast.AggregateCall instead and never reach this table.
var scalarFunctions = map[string]func(args []value.Value) (value.Value, error){
	"upper":     fnUpper,
	"lower":     fnLower,
	"length":    fnLength,
	"trim":      fnTrim,
	"ltrim":     fnLTrim,
	"rtrim":     fnRTrim,
	"concat":    fnConcat,
	"substring": fnSubstring,
	"replace":   fnReplace,
	"coalesce":  fnCoalesce,
	"abs":       fnAbs,
	"round":     fnRound,
}

func evalFunctionCall(ctx context.Context, env *Env, scope *runtime.Scope, f *ast.FunctionCall) (value.Value, error) {
	fn, ok := scalarFunctions[strings.ToLower(f.Name)]
	if !ok {
		return value.Null, qerrors.Semantic(qerrors.PhaseEval, "unknown function %q", f.Name)
	}
	args := make([]value.Value, len(f.Args))
	for i, a := range f.Args {
		v, err := EvalExpr(ctx, env, scope, a)
		if err != nil {
			return value.Null, err
		}
		args[i] = v
	}
	return fn(args)
}

func fnUpper(args []value.Value) (value.Value, error) {
	s, err := arg1String(args, "UPPER")
	if err != nil {
		return value.Null, err
	}
	return value.NewString(strings.ToUpper(s)), nil
}

func fnLower(args []value.Value) (value.Value, error) {
	s, err := arg1String(args, "LOWER")
	if err != nil {
		return value.Null, err
	}
	return value.NewString(strings.ToLower(s)), nil
}

func fnLength(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null, qerrors.Eval("LENGTH expects 1 argument, got %d", len(args))
	}
	if args[0].IsNull() {
		return value.Null, nil
	}
	return value.NewInt64(int64(len(args[0].Display()))), nil
}

func fnTrim(args []value.Value) (value.Value, error) {
	s, err := arg1String(args, "TRIM")
	if err != nil {
		return value.Null, err
	}
	return value.NewString(strings.TrimSpace(s)), nil
}

func fnLTrim(args []value.Value) (value.Value, error) {
	s, err := arg1String(args, "LTRIM")
	if err != nil {
		return value.Null, err
	}
	return value.NewString(strings.TrimLeft(s, " \t\n\r")), nil
}

func fnRTrim(args []value.Value) (value.Value, error) {
	s, err := arg1String(args, "RTRIM")
	if err != nil {
		return value.Null, err
	}
	return value.NewString(strings.TrimRight(s, " \t\n\r")), nil
}

func fnConcat(args []value.Value) (value.Value, error) {
	var b strings.Builder
	for _, a := range args {
		if a.IsNull() {
			return value.Null, nil
		}
		b.WriteString(displayForConcat(a))
	}
	return value.NewString(b.String()), nil
}

func fnSubstring(args []value.Value) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return value.Null, qerrors.Eval("SUBSTRING expects 2 or 3 arguments, got %d", len(args))
	}
	if args[0].IsNull() {
		return value.Null, nil
	}
	s := displayForConcat(args[0])
	start, ok := asFloat(args[1])
	if !ok {
		return value.Null, qerrors.Eval("SUBSTRING start must be numeric")
	}
	from := int(start) - 1
	if from < 0 {
		from = 0
	}
	if from > len(s) {
		return value.NewString(""), nil
	}
	end := len(s)
	if len(args) == 3 {
		length, ok := asFloat(args[2])
		if !ok {
			return value.Null, qerrors.Eval("SUBSTRING length must be numeric")
		}
		if from+int(length) < end {
			end = from + int(length)
		}
	}
	return value.NewString(s[from:end]), nil
}

func fnReplace(args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return value.Null, qerrors.Eval("REPLACE expects 3 arguments, got %d", len(args))
	}
	for _, a := range args {
		if a.IsNull() {
			return value.Null, nil
		}
	}
	s := displayForConcat(args[0])
	old := displayForConcat(args[1])
	newS := displayForConcat(args[2])
	return value.NewString(strings.ReplaceAll(s, old, newS)), nil
}

func fnCoalesce(args []value.Value) (value.Value, error) {
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return value.Null, nil
}

func fnAbs(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null, qerrors.Eval("ABS expects 1 argument, got %d", len(args))
	}
	if args[0].IsNull() {
		return value.Null, nil
	}
	if args[0].Kind() == value.KInt64 {
		n := args[0].Int64()
		if n < 0 {
			n = -n
		}
		return value.NewInt64(n), nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return value.Null, qerrors.Eval("ABS expects a numeric argument")
	}
	if f < 0 {
		f = -f
	}
	return value.NewFloat64(f), nil
}

func fnRound(args []value.Value) (value.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return value.Null, qerrors.Eval("ROUND expects 1 or 2 arguments, got %d", len(args))
	}
	if args[0].IsNull() {
		return value.Null, nil
	}
	f, ok := asFloat(args[0])
	if !ok {
		return value.Null, qerrors.Eval("ROUND expects a numeric argument")
	}
	digits := 0
	if len(args) == 2 {
		d, ok := asFloat(args[1])
		if !ok {
			return value.Null, qerrors.Eval("ROUND precision must be numeric")
		}
		digits = int(d)
	}
	mult := 1.0
	for i := 0; i < digits; i++ {
		mult *= 10
	}
	for i := 0; i > digits; i-- {
		mult /= 10
	}
	rounded := float64(int64(f*mult+sign(f)*0.5)) / mult
	if digits <= 0 {
		return value.NewInt64(int64(rounded)), nil
	}
	return value.NewFloat64(rounded), nil
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func arg1String(args []value.Value, name string) (string, error) {
	if len(args) != 1 {
		return "", qerrors.Eval("%s expects 1 argument, got %d", name, len(args))
	}
	if args[0].IsNull() {
		return "", nil
	}
	return displayForConcat(args[0]), nil
}

// EvalCond evaluates cond to a two-valued boolean per the tri-state
// semantics implemented by evalCondTri, collapsing "unknown" (any
// comparison against NULL) to false, matching WHERE's row-inclusion rule
// (spec.md §3: "Three-valued logic with NULL").
func EvalCond(ctx context.Context, env *Env, scope *runtime.Scope, cond ast.Cond) (bool, error) {
	t, err := evalCondTri(ctx, env, scope, cond)
	if err != nil {
		return false, err
	}
	return t == triTrue, nil
}

type triState int

const (
	triFalse triState = iota
	triTrue
	triUnknown
)

func evalCondTri(ctx context.Context, env *Env, scope *runtime.Scope, cond ast.Cond) (triState, error) {
	switch c := cond.(type) {
	case *ast.BoolCond:
		left, err := evalCondTri(ctx, env, scope, c.Left)
		if err != nil {
			return triFalse, err
		}
		if c.Op == ast.OpAnd && left == triFalse {
			return triFalse, nil
		}
		if c.Op == ast.OpOr && left == triTrue {
			return triTrue, nil
		}
		right, err := evalCondTri(ctx, env, scope, c.Right)
		if err != nil {
			return triFalse, err
		}
		if c.Op == ast.OpAnd {
			return andTri(left, right), nil
		}
		return orTri(left, right), nil

	case *ast.NotCond:
		t, err := evalCondTri(ctx, env, scope, c.Operand)
		if err != nil {
			return triFalse, err
		}
		switch t {
		case triTrue:
			return triFalse, nil
		case triFalse:
			return triTrue, nil
		default:
			return triUnknown, nil
		}

	case *ast.Compare:
		left, err := EvalExpr(ctx, env, scope, c.Left)
		if err != nil {
			return triFalse, err
		}
		right, err := EvalExpr(ctx, env, scope, c.Right)
		if err != nil {
			return triFalse, err
		}
		if left.IsNull() || right.IsNull() {
			return triUnknown, nil
		}
		ok, err := compareValues(c.Op, left, right)
		if err != nil {
			return triFalse, err
		}
		return boolTri(ok), nil

	case *ast.LikeCond:
		operand, err := EvalExpr(ctx, env, scope, c.Operand)
		if err != nil {
			return triFalse, err
		}
		pattern, err := EvalExpr(ctx, env, scope, c.Pattern)
		if err != nil {
			return triFalse, err
		}
		if operand.IsNull() || pattern.IsNull() {
			return triUnknown, nil
		}
		matched, err := matchLike(operand.Display(), pattern.Display(), c.Regex)
		if err != nil {
			return triFalse, err
		}
		if c.Not {
			matched = !matched
		}
		return boolTri(matched), nil

	case *ast.NullCond:
		v, err := EvalExpr(ctx, env, scope, c.Operand)
		if err != nil {
			return triFalse, err
		}
		isNull := v.IsNull()
		if c.Not {
			isNull = !isNull
		}
		return boolTri(isNull), nil

	default:
		return triFalse, qerrors.Eval("unsupported condition %T", cond)
	}
}

func boolTri(b bool) triState {
	if b {
		return triTrue
	}
	return triFalse
}

func andTri(a, b triState) triState {
	if a == triFalse || b == triFalse {
		return triFalse
	}
	if a == triTrue && b == triTrue {
		return triTrue
	}
	return triUnknown
}

func orTri(a, b triState) triState {
	if a == triTrue || b == triTrue {
		return triTrue
	}
	if a == triFalse && b == triFalse {
		return triFalse
	}
	return triUnknown
}

func compareValues(op ast.CmpOp, a, b value.Value) (bool, error) {
	if op == ast.CmpEq {
		return value.Equal(a, b), nil
	}
	if op == ast.CmpNe {
		return !value.Equal(a, b), nil
	}
	cmp, ok := orderCompare(a, b)
	if !ok {
		return false, qerrors.Eval("cannot order-compare %s and %s", a.TypeName(), b.TypeName())
	}
	switch op {
	case ast.CmpLt:
		return cmp < 0, nil
	case ast.CmpLe:
		return cmp <= 0, nil
	case ast.CmpGt:
		return cmp > 0, nil
	case ast.CmpGe:
		return cmp >= 0, nil
	default:
		return false, qerrors.Eval("unsupported comparison operator")
	}
}

// orderCompare returns -1/0/1 for a relative to b if the two values have a
// natural ordering, else ok=false.
func orderCompare(a, b value.Value) (int, bool) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if a.Kind() == value.KString && b.Kind() == value.KString {
		return strings.Compare(a.String(), b.String()), true
	}
	if a.Kind() == value.KDate && b.Kind() == value.KDate {
		switch {
		case a.Date().Before(b.Date()):
			return -1, true
		case a.Date().After(b.Date()):
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

// matchLike implements SQL LIKE (`%` any run, `_` any single character) or,
// for RLIKE, treats pattern as a regular expression (spec.md §4.4).
func matchLike(s, pattern string, regex bool) (bool, error) {
	if regex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, qerrors.EvalWrap(err, "compiling RLIKE pattern %q", pattern)
		}
		return re.MatchString(s), nil
	}
	re, err := regexp.Compile(likeToRegexp(pattern))
	if err != nil {
		return false, qerrors.EvalWrap(err, "compiling LIKE pattern %q", pattern)
	}
	return re.MatchString(s), nil
}

func likeToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}
