// Package parse turns query text into an internal/ast tree, per the
// grammar in spec §4.1. It is built on github.com/alecthomas/participle/v2,
// the same parser-combinator library the teacher uses for its own DSL.
package parse

import (
	"errors"

	"github.com/alecthomas/participle/v2"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ast"
)

// Parse parses a single query and returns its root AST node.
func Parse(input string) (ast.Node, error) {
	g, err := dqlParser.ParseString("", input)
	if err != nil {
		return nil, enrichSyntaxError(input, err)
	}
	return convertExpr(g.Expr)
}

func enrichSyntaxError(input string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return apperr.Parse("%s (line %d, column %d, near %q)", perr.Message(), pos.Line, pos.Column, snippet(input, pos.Offset))
	}
	return apperr.Parse("%s", err.Error())
}

func snippet(input string, offset int) string {
	const window = 16
	if offset < 0 || offset > len(input) {
		return ""
	}
	end := offset + window
	if end > len(input) {
		end = len(input)
	}
	return input[offset:end]
}
