// Package script implements a stack-based, reverse-Polish script VM: the
// Pay-to-Public-Key-Hash locking/unlocking evaluator that the chain engine
// delegates all authorization questions to. Shaped as a dispatch table over
// parsed opcodes operating on a data stack, closed over a fixed set of
// eight operators rather than a full opcode set.
package script

import (
	"strings"

	"github.com/kalymgr/tlcd/primitives"
	"github.com/pkg/errors"
)

// op identifies one of the fixed, closed set of script operators. Unknown
// operator tokens are rejected before evaluation begins (ParseProgram), not
// at dispatch time.
type op int

const (
	opDrop op = iota
	opDup
	opHash160
	opEqual
	opEqualVerify
	opCheckSig
	opPush2
	opPush3
)

var opNames = map[string]op{
	"drop":        opDrop,
	"dup":         opDup,
	"hash160":     opHash160,
	"equal":       opEqual,
	"equalVerify": opEqualVerify,
	"checkSig":    opCheckSig,
	"op_2":        opPush2,
	"op_3":        opPush3,
}

// token is one parsed element of a script program: either a literal
// operand (isOperand true, value already stripped of its <...> brackets)
// or an operator.
type token struct {
	isOperand bool
	operand   string
	operator  op
}

// ParseProgram tokenizes a script string on whitespace and classifies every
// token as an operand (begins with '<' and ends with '>') or an operator
// from the fixed enumeration. An unrecognized operator token is rejected
// immediately, before any evaluation takes place.
func ParseProgram(program string) ([]token, error) {
	fields := strings.Fields(program)
	tokens := make([]token, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 && strings.HasPrefix(f, "<") && strings.HasSuffix(f, ">") {
			tokens = append(tokens, token{isOperand: true, operand: f[1 : len(f)-1]})
			continue
		}
		o, ok := opNames[f]
		if !ok {
			return nil, errors.Errorf("script: unknown operator %q", f)
		}
		tokens = append(tokens, token{operator: o})
	}
	return tokens, nil
}

// Eval evaluates scriptSig followed by scriptPubKey (concatenated) against
// transactionHash and reports whether the result accepts (non-empty,
// non-"false", non-"0" top of stack after the final token).
//
// Eval is pure: the same (scriptSig, scriptPubKey, transactionHash) always
// produces the same result, with no side effects on shared state.
func Eval(scriptSig, scriptPubKey, transactionHash string) (bool, error) {
	sigTokens, err := ParseProgram(scriptSig)
	if err != nil {
		return false, err
	}
	pubKeyTokens, err := ParseProgram(scriptPubKey)
	if err != nil {
		return false, err
	}

	program := make([]token, 0, len(sigTokens)+len(pubKeyTokens))
	program = append(program, sigTokens...)
	program = append(program, pubKeyTokens...)

	var st stack
	for _, t := range program {
		if t.isOperand {
			st.push(t.operand)
			continue
		}
		if !execute(&st, t.operator, transactionHash) {
			return false, nil
		}
	}

	top, ok := st.top()
	if !ok {
		return false, nil
	}
	return isTruthy(top), nil
}

// execute applies one operator to the stack. It returns false when the
// operator represents a hard script failure (equalVerify mismatch);
// operators on an empty stack are no-ops and always return true.
func execute(st *stack, o op, transactionHash string) bool {
	switch o {
	case opDrop:
		st.pop()
	case opDup:
		if v, ok := st.top(); ok {
			st.push(v)
		}
	case opHash160:
		if v, ok := st.pop(); ok {
			st.push(primitives.Hash160Hex(v))
		}
	case opEqual:
		b, okB := st.pop()
		a, okA := st.pop()
		if okA && okB {
			st.push(boolStr(a == b))
		}
	case opEqualVerify:
		b, okB := st.pop()
		a, okA := st.pop()
		if okA && okB && a != b {
			return false
		}
	case opCheckSig:
		pubKey, okPub := st.pop()
		sig, okSig := st.pop()
		if okPub && okSig {
			st.push(boolStr(primitives.VerifySignature(pubKey, transactionHash, sig)))
		}
	case opPush2:
		st.push("2")
	case opPush3:
		st.push("3")
	}
	return true
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func isTruthy(s string) bool {
	return s != "" && s != "false" && s != "0"
}
