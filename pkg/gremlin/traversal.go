package gremlin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Instruction is one step or source instruction of a traversal.
type Instruction struct {
	Operator string
	Args     []any
}

// Bytecode is the language-neutral form of a traversal.
type Bytecode struct {
	Sources []Instruction
	Steps   []Instruction
}

// Traversal builds bytecode step by step. Step methods append to the
// receiver and return it, so a Traversal must not be shared while it is
// being built.
type Traversal struct {
	bc     *Bytecode
	source string
}

// G starts a traversal from the graph traversal source g.
func G() *Traversal { return &Traversal{bc: &Bytecode{}, source: "g"} }

// Anon starts an anonymous traversal (__) for use inside other steps.
func Anon() *Traversal { return &Traversal{bc: &Bytecode{}, source: "__"} }

// Bytecode returns the traversal's bytecode.
func (t *Traversal) Bytecode() *Bytecode { return t.bc }

// Clone returns an independent copy of the traversal.
func (t *Traversal) Clone() *Traversal {
	bc := &Bytecode{
		Sources: append([]Instruction(nil), t.bc.Sources...),
		Steps:   append([]Instruction(nil), t.bc.Steps...),
	}
	return &Traversal{bc: bc, source: t.source}
}

// Len returns the number of steps.
func (t *Traversal) Len() int { return len(t.bc.Steps) }

// Add appends an arbitrary step. Prefer the typed methods.
func (t *Traversal) Add(step string, args ...any) *Traversal {
	t.bc.Steps = append(t.bc.Steps, Instruction{Operator: step, Args: args})
	return t
}

// WithSideEffect adds a source instruction.
func (t *Traversal) WithSideEffect(key string, value any) *Traversal {
	t.bc.Sources = append(t.bc.Sources, Instruction{Operator: "withSideEffect", Args: []any{key, value}})
	return t
}

func (t *Traversal) V(ids ...any) *Traversal         { return t.Add("V", ids...) }
func (t *Traversal) E(ids ...any) *Traversal         { return t.Add("E", ids...) }
func (t *Traversal) AddV(label ...any) *Traversal    { return t.Add("addV", label...) }
func (t *Traversal) AddE(label ...any) *Traversal    { return t.Add("addE", label...) }
func (t *Traversal) From(v any) *Traversal           { return t.Add("from", v) }
func (t *Traversal) To(v any) *Traversal             { return t.Add("to", v) }
func (t *Traversal) Property(args ...any) *Traversal { return t.Add("property", args...) }
func (t *Traversal) Has(args ...any) *Traversal      { return t.Add("has", args...) }
func (t *Traversal) HasLabel(labels ...any) *Traversal {
	return t.Add("hasLabel", labels...)
}
func (t *Traversal) HasID(ids ...any) *Traversal       { return t.Add("hasId", ids...) }
func (t *Traversal) HasNot(key string) *Traversal      { return t.Add("hasNot", key) }
func (t *Traversal) Fold() *Traversal                  { return t.Add("fold") }
func (t *Traversal) Unfold() *Traversal                { return t.Add("unfold") }
func (t *Traversal) Coalesce(ts ...any) *Traversal     { return t.Add("coalesce", ts...) }
func (t *Traversal) Range(low, high int64) *Traversal  { return t.Add("range", low, high) }
func (t *Traversal) Limit(n int64) *Traversal          { return t.Add("limit", n) }
func (t *Traversal) Skip(n int64) *Traversal           { return t.Add("skip", n) }
func (t *Traversal) Count() *Traversal                 { return t.Add("count") }
func (t *Traversal) Label() *Traversal                 { return t.Add("label") }
func (t *Traversal) ID() *Traversal                    { return t.Add("id") }
func (t *Traversal) Dedup(args ...any) *Traversal      { return t.Add("dedup", args...) }
func (t *Traversal) Project(keys ...any) *Traversal    { return t.Add("project", keys...) }
func (t *Traversal) By(args ...any) *Traversal         { return t.Add("by", args...) }
func (t *Traversal) ValueMap(keys ...any) *Traversal   { return t.Add("valueMap", keys...) }
func (t *Traversal) Values(keys ...any) *Traversal     { return t.Add("values", keys...) }
func (t *Traversal) Keys() *Traversal                  { return t.Add("keys") }
func (t *Traversal) Properties(keys ...any) *Traversal { return t.Add("properties", keys...) }
func (t *Traversal) OutV() *Traversal                  { return t.Add("outV") }
func (t *Traversal) InV() *Traversal                   { return t.Add("inV") }
func (t *Traversal) OutE(labels ...any) *Traversal     { return t.Add("outE", labels...) }
func (t *Traversal) InE(labels ...any) *Traversal      { return t.Add("inE", labels...) }
func (t *Traversal) Out(labels ...any) *Traversal      { return t.Add("out", labels...) }
func (t *Traversal) In(labels ...any) *Traversal       { return t.Add("in", labels...) }
func (t *Traversal) Drop() *Traversal                  { return t.Add("drop") }
func (t *Traversal) GroupCount() *Traversal            { return t.Add("groupCount") }
func (t *Traversal) Group() *Traversal                 { return t.Add("group") }
func (t *Traversal) Order() *Traversal                 { return t.Add("order") }
func (t *Traversal) Select(args ...any) *Traversal     { return t.Add("select", args...) }
func (t *Traversal) As(labels ...any) *Traversal       { return t.Add("as", labels...) }
func (t *Traversal) Constant(v any) *Traversal         { return t.Add("constant", v) }
func (t *Traversal) Inject(vs ...any) *Traversal       { return t.Add("inject", vs...) }
func (t *Traversal) SideEffect(a *Traversal) *Traversal {
	return t.Add("sideEffect", a)
}
func (t *Traversal) Not(a *Traversal) *Traversal { return t.Add("not", a) }
func (t *Traversal) Where(arg any) *Traversal    { return t.Add("where", arg) }
func (t *Traversal) Is(arg any) *Traversal       { return t.Add("is", arg) }
func (t *Traversal) ElementMap(keys ...any) *Traversal {
	return t.Add("elementMap", keys...)
}

// ValueMapWithTokens is valueMap(true): it includes the id and label tokens.
func (t *Traversal) ValueMapWithTokens(keys ...any) *Traversal {
	return t.Add("valueMap", append([]any{true}, keys...)...)
}

// None discards all results. It is what iterate() sends.
func (t *Traversal) None() *Traversal { return t.Add("none") }

// endsWithNone reports whether the last step is none().
func (t *Traversal) endsWithNone() bool {
	n := len(t.bc.Steps)
	return n > 0 && t.bc.Steps[n-1].Operator == "none"
}

// String renders the traversal as a gremlin-groovy script.
func (t *Traversal) String() string { return Translate(t.bc, t.source) }

// Translate renders bytecode as a gremlin-groovy script rooted at source.
func Translate(bc *Bytecode, source string) string {
	var b strings.Builder
	b.WriteString(source)
	for _, ins := range bc.Sources {
		writeInstruction(&b, ins)
	}
	for _, ins := range bc.Steps {
		writeInstruction(&b, ins)
	}
	return b.String()
}

func writeInstruction(b *strings.Builder, ins Instruction) {
	b.WriteByte('.')
	b.WriteString(ins.Operator)
	b.WriteByte('(')
	for i, arg := range ins.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(groovyLiteral(arg))
	}
	b.WriteByte(')')
}

func groovyLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8:
		return "(byte)" + strconv.Itoa(int(x))
	case int16:
		return "(short)" + strconv.Itoa(int(x))
	case int32, uint8, uint16:
		return fmt.Sprint(x)
	case int64:
		return strconv.FormatInt(x, 10) + "L"
	case uint32, uint, uint64:
		return fmt.Sprint(x) + "L"
	case float32:
		return groovyFloat(float64(x), "f")
	case float64:
		return groovyFloat(x, "d")
	case time.Time:
		return "new Date(" + strconv.FormatInt(x.UnixMilli(), 10) + "L)"
	case uuid.UUID:
		return "UUID.fromString(" + quote(x.String()) + ")"
	case T:
		return "T." + string(x)
	case Direction:
		return "Direction." + string(x)
	case Cardinality:
		return string(x)
	case Order:
		return "Order." + string(x)
	case Column:
		return "Column." + string(x)
	case P:
		args := make([]string, len(x.Values))
		for i, a := range x.Values {
			args[i] = groovyLiteral(a)
		}
		if x.Operator == "within" || x.Operator == "without" {
			return x.Operator + "(" + strings.Join(args, ",") + ")"
		}
		prefix := "P."
		if textPredicates[x.Operator] {
			prefix = "TextP."
		}
		return prefix + x.Operator + "(" + strings.Join(args, ",") + ")"
	case *Traversal:
		return x.String()
	case []any:
		parts := make([]string, len(x))
		for i, a := range x {
			parts[i] = groovyLiteral(a)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return quote(fmt.Sprint(v))
}

func groovyFloat(f float64, suffix string) string {
	switch {
	case math.IsNaN(f):
		return "Double.NaN"
	case math.IsInf(f, 1):
		return "Double.POSITIVE_INFINITY"
	case math.IsInf(f, -1):
		return "Double.NEGATIVE_INFINITY"
	}
	return strconv.FormatFloat(f, 'g', -1, 64) + suffix
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return "'" + r.Replace(s) + "'"
}
