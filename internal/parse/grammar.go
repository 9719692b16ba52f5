package parse

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var dqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(AND|OR|NOT|KW|KEYWORD|COL|COLUMN|NAME|PP|PERCENTILE)\b`},
	{Name: "Cmp", Pattern: `(?i)\b(ge|gt|le|lt)\b`},
	{Name: "Number", Pattern: `[+-]?\d+(?:\.\d+)?`},
	{Name: "String", Pattern: `"([^"\\]|\\.)*"|'([^'\\]|\\.)*'`},
	{Name: "Punct", Pattern: `[();]`},
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Grammar is the top-level parse tree: a single table-level expression.
type Grammar struct {
	Expr *TblExprAST `parser:"@@"`
}

// TblExprAST: tbl_term ("OR" tbl_term)+ | tbl_term
type TblExprAST struct {
	Left *TblTermAST   `parser:"@@"`
	Or   []*TblTermAST `parser:"( \"OR\" @@ )*"`
}

// TblTermAST: tbl_factor ("AND" tbl_factor)+ | tbl_factor
type TblTermAST struct {
	Left *TblFactorAST   `parser:"@@"`
	And  []*TblFactorAST `parser:"( \"AND\" @@ )*"`
}

// TblFactorAST dispatches on NOT, a parenthesized sub-expression, or an op.
type TblFactorAST struct {
	Not   *TblFactorAST `parser:"  \"NOT\" @@"`
	Group *TblExprAST   `parser:"| \"(\" @@ \")\""`
	Op    *TblOpAST     `parser:"| @@"`
}

// TblOpAST: kw(STRING) | col(col_expr)
type TblOpAST struct {
	Keyword *string     `parser:"  ( \"kw\" | \"keyword\" ) \"(\" @String \")\""`
	Column  *ColExprAST `parser:"| ( \"col\" | \"column\" ) \"(\" @@ \")\""`
}

// ColExprAST: col_term ("OR" col_term)+ | col_term
type ColExprAST struct {
	Left *ColTermAST   `parser:"@@"`
	Or   []*ColTermAST `parser:"( \"OR\" @@ )*"`
}

// ColTermAST: col_factor ("AND" col_factor)+ | col_factor
type ColTermAST struct {
	Left *ColFactorAST   `parser:"@@"`
	And  []*ColFactorAST `parser:"( \"AND\" @@ )*"`
}

// ColFactorAST dispatches on NOT, a parenthesized sub-expression, or an op.
type ColFactorAST struct {
	Not   *ColFactorAST `parser:"  \"NOT\" @@"`
	Group *ColExprAST   `parser:"| \"(\" @@ \")\""`
	Op    *ColOpAST     `parser:"| @@"`
}

// ColOpAST: name(STRING;INT) | pp(FLOAT;CMP;SIGNED_NUMBER)
type ColOpAST struct {
	Name       *NameOpAST       `parser:"  \"name\" \"(\" @@ \")\""`
	Percentile *PercentileOpAST `parser:"| ( \"pp\" | \"percentile\" ) \"(\" @@ \")\""`
}

// NameOpAST: STRING ";" INT
type NameOpAST struct {
	Text string `parser:"@String \";\""`
	K    int    `parser:"@Number"`
}

// PercentileOpAST: FLOAT ";" CMP ";" SIGNED_NUMBER
type PercentileOpAST struct {
	P   float64 `parser:"@Number \";\""`
	Cmp string  `parser:"@Cmp \";\""`
	Ref float64 `parser:"@Number"`
}

var dqlParser = participle.MustBuild[Grammar](
	participle.Lexer(dqlLexer),
	participle.CaseInsensitive("Keyword"),
	participle.CaseInsensitive("Cmp"),
	participle.Elide("Whitespace", "Comment"),
)
