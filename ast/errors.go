package ast

import "github.com/adamharrison/liquid-go/liquiderr"

var errInvalidVariable = liquiderr.New(liquiderr.InvalidSymbol, "", 0, 0, "<var>")

func errUnknownVariable(name string, pos Position) error {
	return liquiderr.New(liquiderr.UnknownVariable, "", pos.Line, pos.Column, name)
}
