// Package replcalc recovers original_source's examples/replcalc worked
// example: a tiny calculator language (assignment, print, and the four
// arithmetic operators over parenthesized expressions) whose grammar is run
// through the full gramparse -> analyzer -> lrtable -> emit pipeline at
// startup, then driven line-by-line by a hand-written shift-reduce loop.
// There is no code generator in this module (spec.md scopes the resulting
// runtime parser engine as an external collaborator's concern), so this
// package plays that collaborator's part for exactly one grammar: it walks
// the generated table itself rather than compiling the table into a
// standalone parser.
package replcalc

// grammarSource is the calculator's grammar, written in the same DSL the
// rest of this module parses. PRINT is declared before IDENT so that on an
// equal-length match ("print" is itself a valid identifier shape) the
// lexer's declaration-order tie-break picks the keyword.
const grammarSource = `
term <@lexeme> NUM r:[0-9]+(\.[0-9]+)? ;
term PRINT 'print' @cfold ;
term <@lexeme> IDENT r:[A-Za-z_][A-Za-z0-9_]* ;
term ASSIGN ':=' ;
term PLUS '+' @prec=1 @assoc=left ;
term MINUS '-' @prec=1 @assoc=left ;
term STAR '*' @prec=2 @assoc=left ;
term SLASH '/' @prec=2 @assoc=left ;
term LPAREN '(' ;
term RPAREN ')' ;
skip WS r:[\ \t]+ ;

goal rule Stmt {
	=> IDENT ASSIGN Expr ;
	=> PRINT IDENT ;
	=> Expr ;
}

rule <double> Expr {
	=> left:Expr PLUS right:Expr ;
	=> left:Expr MINUS right:Expr ;
	=> left:Expr STAR right:Expr ;
	=> left:Expr SLASH right:Expr ;
	=> LPAREN inner:Expr RPAREN ;
	=> NUM ;
	=> IDENT ;
}
`
