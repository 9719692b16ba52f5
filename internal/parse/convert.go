package parse

import (
	"strings"

	"github.com/ritamzico/dsearch/internal/apperr"
	"github.com/ritamzico/dsearch/internal/ast"
)

func convertExpr(e *TblExprAST) (ast.Node, error) {
	left, err := convertTerm(e.Left)
	if err != nil {
		return nil, err
	}
	if len(e.Or) == 0 {
		return &ast.Query{Child: left}, nil
	}

	children := []ast.Node{left}
	for _, t := range e.Or {
		child, err := convertTerm(t)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &ast.Query{Child: &ast.Disjunction{Children: children}}, nil
}

func convertTerm(t *TblTermAST) (ast.Node, error) {
	left, err := convertFactor(t.Left)
	if err != nil {
		return nil, err
	}
	if len(t.And) == 0 {
		return left, nil
	}

	children := []ast.Node{left}
	for _, f := range t.And {
		child, err := convertFactor(f)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &ast.Conjunction{Children: children}, nil
}

func convertFactor(f *TblFactorAST) (ast.Node, error) {
	switch {
	case f.Not != nil:
		child, err := convertFactor(f.Not)
		if err != nil {
			return nil, err
		}
		return &ast.Negation{Child: child}, nil
	case f.Group != nil:
		node, err := convertExpr(f.Group)
		if err != nil {
			return nil, err
		}
		return unwrapQuery(node), nil
	case f.Op != nil:
		return convertOp(f.Op)
	default:
		return nil, apperr.Parse("empty table expression")
	}
}

func convertOp(o *TblOpAST) (ast.Node, error) {
	switch {
	case o.Keyword != nil:
		text, err := unquoteString(*o.Keyword)
		if err != nil {
			return nil, err
		}
		return &ast.KeywordLeaf{Text: text}, nil
	case o.Column != nil:
		inner, err := convertColExpr(o.Column)
		if err != nil {
			return nil, err
		}
		return &ast.ColScope{Child: inner}, nil
	default:
		return nil, apperr.Parse("unrecognized table operator")
	}
}

func convertColExpr(e *ColExprAST) (ast.Node, error) {
	left, err := convertColTerm(e.Left)
	if err != nil {
		return nil, err
	}
	if len(e.Or) == 0 {
		return left, nil
	}

	children := []ast.Node{left}
	for _, t := range e.Or {
		child, err := convertColTerm(t)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &ast.Disjunction{Children: children}, nil
}

func convertColTerm(t *ColTermAST) (ast.Node, error) {
	left, err := convertColFactor(t.Left)
	if err != nil {
		return nil, err
	}
	if len(t.And) == 0 {
		return left, nil
	}

	children := []ast.Node{left}
	for _, f := range t.And {
		child, err := convertColFactor(f)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &ast.Conjunction{Children: children}, nil
}

func convertColFactor(f *ColFactorAST) (ast.Node, error) {
	switch {
	case f.Not != nil:
		child, err := convertColFactor(f.Not)
		if err != nil {
			return nil, err
		}
		return &ast.Negation{Child: child}, nil
	case f.Group != nil:
		return convertColExpr(f.Group)
	case f.Op != nil:
		return convertColOp(f.Op)
	default:
		return nil, apperr.Parse("empty column expression")
	}
}

func convertColOp(o *ColOpAST) (ast.Node, error) {
	switch {
	case o.Name != nil:
		text, err := unquoteString(o.Name.Text)
		if err != nil {
			return nil, err
		}
		return &ast.NameLeaf{Text: text, K: o.Name.K}, nil
	case o.Percentile != nil:
		cmp, ok := ast.ParseCmp(strings.ToLower(o.Percentile.Cmp))
		if !ok {
			return nil, apperr.Parse("unrecognized comparator %q", o.Percentile.Cmp)
		}
		return &ast.PercentileLeaf{P: o.Percentile.P, Cmp: cmp, Ref: o.Percentile.Ref}, nil
	default:
		return nil, apperr.Parse("unrecognized column operator")
	}
}

// unwrapQuery discards the Query wrapper a parenthesized tbl_expr produces,
// since only the outermost expression should carry it.
func unwrapQuery(n ast.Node) ast.Node {
	if q, ok := n.(*ast.Query); ok {
		return q.Child
	}
	return n
}

func unquoteString(raw string) (string, error) {
	if len(raw) < 2 {
		return "", apperr.Parse("invalid string literal %q", raw)
	}
	body := raw[1 : len(raw)-1]

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			b.WriteByte(body[i])
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}
