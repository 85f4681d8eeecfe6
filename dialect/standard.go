package dialect

import (
	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/value"
)

// standardVersion is the semantic version Standard() registers itself
// under (spec.md §6's dialect/version negotiation contract).
const standardVersion = "1.0.0"

// Standard builds an *ast.Context populated with the standard tag,
// operator, filter, and literal set: the one dialect this module
// ships, mirroring the way the teacher's own plugin registry is
// populated by a single top-level constructor that calls each
// registration helper in turn rather than leaving callers to assemble
// the table by hand.
func Standard() (*ast.Context, error) {
	c := ast.NewContext()

	for _, t := range Tags() {
		if err := c.RegisterTag(t); err != nil {
			return nil, err
		}
	}
	for _, op := range Operators() {
		if err := c.RegisterOperator(op); err != nil {
			return nil, err
		}
	}
	for _, f := range Filters() {
		if f.Discriminant() == ast.DiscDotFilter {
			if err := c.RegisterDotFilter(f); err != nil {
				return nil, err
			}
			continue
		}
		if err := c.RegisterFilter(f); err != nil {
			return nil, err
		}
	}

	literals := map[string]value.Value{
		"nil":   value.Nil(),
		"null":  value.Nil(),
		"true":  value.Bool(true),
		"false": value.Bool(false),
		"blank": value.String(""),
		"empty": value.Array(nil),
	}
	for name, v := range literals {
		if err := c.RegisterLiteral(name, v); err != nil {
			return nil, err
		}
	}

	if err := c.RegisterDialect("standard", standardVersion); err != nil {
		return nil, err
	}
	return c, nil
}
