package codegen

import (
	"fmt"

	"github.com/emirpasic/gods/stacks/linkedliststack"
	"github.com/npillmayer/arithm/polyn"
	"github.com/npillmayer/mosra/lang"
)

/*
----------------------------------------------------------------------

BSD License

Copyright (c) 2017–21, Norbert Pillmayer

All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions
are met:

1. Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright
notice, this list of conditions and the following disclaimer in the
documentation and/or other materials provided with the distribution.

3. Neither the name of this software nor the names of its contributors
may be used to endorse or promote products derived from this software
without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

----------------------------------------------------------------------

 * This module implements a stack of linear expressions. It is used to
 * fold the prefix instructions of a segment into a linear row.
 *
 * Every expression on the stack is a linear polynomial over decision
 * variables. Decision variable with offset k is term k+1 of a polynomial,
 * as term 0 holds the constant part.
 *
 * Operations which would leave the realm of linear polynomials (products
 * of two unknowns, division by an unknown, functions of unknowns) are
 * errors. Functions of known values are folded to constants.

*/

// ExprStack is a stack of linear polynomials.
type ExprStack struct {
	stack *linkedliststack.Stack
	lang  *lang.Language
}

// NewExprStack creates an empty expression stack.
func NewExprStack(l *lang.Language) *ExprStack {
	if l == nil {
		l = lang.Standard()
	}
	return &ExprStack{stack: linkedliststack.New(), lang: l}
}

// Size returns the number of expressions on the stack.
func (es *ExprStack) Size() int {
	return es.stack.Size()
}

// IsEmpty is part of stack functionality.
func (es *ExprStack) IsEmpty() bool {
	return es.stack.Empty()
}

// Push pushes a polynomial.
func (es *ExprStack) Push(p polyn.Polynomial) *ExprStack {
	es.stack.Push(p)
	return es
}

// PushConstant pushes a numeric constant, wrapped into a polynomial p = c.
func (es *ExprStack) PushConstant(c float64) *ExprStack {
	return es.Push(polyn.NewConstantPolynomial(c))
}

// PushVariable pushes a decision variable, wrapped into a polynomial
// p = 0 + 1*v.
func (es *ExprStack) PushVariable(offset int) *ExprStack {
	p := polyn.NewConstantPolynomial(0)
	p = p.SetTerm(offset+1, 1)
	return es.Push(p)
}

// Pop is part of stack functionality.
func (es *ExprStack) Pop() (polyn.Polynomial, bool) {
	tos, ok := es.stack.Pop()
	if !ok {
		return polyn.Polynomial{}, false
	}
	return tos.(polyn.Polynomial), true
}

// popN pops n operands. Operands are pushed right to left, so the first
// one popped is the leftmost.
func (es *ExprStack) popN(n int, opcode int) ([]polyn.Polynomial, error) {
	if es.Size() < n {
		return nil, fmt.Errorf("o%d needs %d operand(s), but %d on stack", opcode, n, es.Size())
	}
	args := make([]polyn.Polynomial, n)
	for i := range args {
		args[i], _ = es.Pop()
	}
	return args, nil
}

// Apply applies an operation to the n operands on top of the stack and
// pushes the result.
func (es *ExprStack) Apply(opcode int, n int) error {
	args, err := es.popN(n, opcode)
	if err != nil {
		return err
	}
	consts, allConst := constants(args)
	switch {
	case allConst:
		v, err := es.lang.Apply(opcode, consts...)
		if err != nil {
			return err
		}
		es.PushConstant(v)
		return nil
	case opcode == lang.OpPlus, opcode == lang.OpSumList:
		p := args[0]
		for _, q := range args[1:] {
			p = p.Add(q, false)
		}
		es.Push(p)
		return nil
	case opcode == lang.OpMinus:
		es.Push(args[0].Subtract(args[1], false))
		return nil
	case opcode == lang.OpNeg:
		es.Push(args[0].Multiply(polyn.NewConstantPolynomial(-1), false))
		return nil
	case opcode == lang.OpMult:
		a, b := args[0], args[1]
		if _, ok := b.IsConstant(); !ok {
			a, b = b, a
		}
		if _, ok := b.IsConstant(); !ok {
			return fmt.Errorf("product of two unknowns is not linear")
		}
		es.Push(a.Multiply(b, false))
		return nil
	case opcode == lang.OpDiv:
		c, ok := args[1].IsConstant()
		if !ok {
			return fmt.Errorf("division by an unknown is not linear")
		}
		if c == 0 {
			return fmt.Errorf("division by zero")
		}
		es.Push(args[0].Divide(args[1], false))
		return nil
	case opcode == lang.OpPow:
		if c, ok := args[1].IsConstant(); ok && c == 1 {
			es.Push(args[0])
			return nil
		}
	case n == 1 && (opcode == lang.OpMinList || opcode == lang.OpMaxList):
		es.Push(args[0])
		return nil
	}
	return fmt.Errorf("operation o%d of unknowns is not linear", opcode)
}

func constants(args []polyn.Polynomial) ([]float64, bool) {
	c := make([]float64, len(args))
	for i, p := range args {
		v, ok := p.IsConstant()
		if !ok {
			return nil, false
		}
		c[i] = v
	}
	return c, true
}

// Coefficients splits a polynomial into its constant part and the
// coefficients of decision variables, by offset.
func Coefficients(p polyn.Polynomial) (float64, map[int]float64) {
	coeffs := make(map[int]float64)
	var c float64
	p.Terms.Each(func(key interface{}, value interface{}) {
		pos, coeff := key.(int), value.(float64)
		if pos == 0 {
			c = coeff
		} else if coeff != 0 {
			coeffs[pos-1] = coeff
		}
	})
	return c, coeffs
}
