package compiler

import "github.com/loxscript/loxvm/lang/token"

// precedence orders binding strength for parsePrecedence, lowest first.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

// rules is the parse table: one row per token kind naming its prefix parser
// (if it can start an expression), its infix parser (if it can continue
// one), and the infix precedence (ParseRule table). It is assigned from
// ruleTable in init, since a direct initializer would form an initialization
// cycle through the parse functions that consult it.
var rules map[token.Kind]parseRule

func init() { rules = ruleTable }

var ruleTable = map[token.Kind]parseRule{
	token.LPAREN: {prefix: (*parser).grouping, infix: (*parser).call, prec: precCall},
	token.DOT:    {infix: (*parser).dot, prec: precCall},
	token.MINUS:  {prefix: (*parser).unary, infix: (*parser).binary, prec: precTerm},
	token.PLUS:   {infix: (*parser).binary, prec: precTerm},
	token.SLASH:  {infix: (*parser).binary, prec: precFactor},
	token.STAR:   {infix: (*parser).binary, prec: precFactor},

	token.BANG:    {prefix: (*parser).unary},
	token.BANG_EQ: {infix: (*parser).binary, prec: precEquality},
	token.EQ_EQ:   {infix: (*parser).binary, prec: precEquality},
	token.GT:      {infix: (*parser).binary, prec: precComparison},
	token.GE:      {infix: (*parser).binary, prec: precComparison},
	token.LT:      {infix: (*parser).binary, prec: precComparison},
	token.LE:      {infix: (*parser).binary, prec: precComparison},

	token.IDENT:  {prefix: (*parser).variable},
	token.STRING: {prefix: (*parser).stringLit},
	token.NUMBER: {prefix: (*parser).number},

	token.AND: {infix: (*parser).and, prec: precAnd},
	token.OR:  {infix: (*parser).or, prec: precOr},

	token.FALSE: {prefix: (*parser).literal},
	token.TRUE:  {prefix: (*parser).literal},
	token.NIL:   {prefix: (*parser).literal},

	token.THIS:  {prefix: (*parser).this},
	token.SUPER: {prefix: (*parser).super},
}

func (p *parser) getRule(k token.Kind) parseRule { return rules[k] }

// parsePrecedence parses one expression of at least prec binding power,
// starting from p.current's prefix rule and folding in infix operators while
// their precedence is high enough.
func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	rule := p.getRule(p.previous.Kind)
	if rule.prefix == nil {
		p.errorAtPrevious("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(p, canAssign)

	for prec <= p.getRule(p.current.Kind).prec {
		p.advance()
		infix := p.getRule(p.previous.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.errorAtPrevious("Invalid assignment target.")
	}
}

func (p *parser) expression() { p.parsePrecedence(precAssignment) }
