// Package chain implements the UTXO chain state engine: the transaction and
// block models, the UTXO set, transaction submission and execution, mining,
// and chain validation over a single-chain, static-target proof-of-work
// design.
package chain

// TransactionVersion is the fixed version number stamped on every
// transaction.
const TransactionVersion = 1

// Transfer is one requested payment within a SubmitTransaction call — a
// submission takes a list of these, not a single recipient/value pair, so
// one call can pay several recipients atomically. Recipient is the
// recipient's pubKeyHash: a P2PKH scriptPubKey can only encode
// hash160(pubKey), so pubKeyHash (not the version-prefixed address) is the
// identifier the chain engine and the UTXO set key transaction outputs by.
type Transfer struct {
	Recipient string
	Value     int
}

// TxInput references a previously-unspent output by (prevTxHash,
// prevTxOutIndex) and carries the unlocking script that proves the right
// to spend it.
type TxInput struct {
	PrevTxHash     string
	PrevTxOutIndex int
	ScriptSig      string
	Value          int
	Recipient      string
}

// TxOutput is a single payment to Recipient, locked by ScriptPubKey.
type TxOutput struct {
	Value        int
	Sender       string
	Recipient    string
	ScriptPubKey string
}

// Transaction is the UTXO model's unit of value transfer. BlockNumber is
// nil until ExecuteTransactions assigns the transaction to a block.
type Transaction struct {
	SenderAddress string
	Inputs        []TxInput
	Outputs       []TxOutput
	Version       int
	InCount       int
	OutCount      int
	TxHash        string
	Signature     string
	BlockNumber   *int
}

// NewTransaction starts an empty transaction for sender, ready to accept
// outputs via AddOutput and inputs via SetInputs.
func NewTransaction(senderAddress string) *Transaction {
	return &Transaction{
		SenderAddress: senderAddress,
		Version:       TransactionVersion,
	}
}

// AddOutput appends a transaction output and keeps OutCount in sync.
func (t *Transaction) AddOutput(out TxOutput) {
	t.Outputs = append(t.Outputs, out)
	t.OutCount = len(t.Outputs)
}

// SetInputs replaces the transaction's input list and keeps InCount in
// sync. Inputs are excluded from the signed preimage, so replacing them (as
// ExecuteTransactions does at block-assembly time) never invalidates an
// existing signature.
func (t *Transaction) SetInputs(inputs []TxInput) {
	t.Inputs = inputs
	t.InCount = len(inputs)
}

// InputsTotalValue sums the values of the transaction's current inputs.
func (t *Transaction) InputsTotalValue() int {
	total := 0
	for _, in := range t.Inputs {
		total += in.Value
	}
	return total
}

// OutputsTotalValue sums the values of the transaction's outputs,
// including any change output already appended.
func (t *Transaction) OutputsTotalValue() int {
	total := 0
	for _, out := range t.Outputs {
		total += out.Value
	}
	return total
}

// NonChangeOutputsTotalValue sums every output except the change output
// (the one whose recipient is the sender).
func (t *Transaction) NonChangeOutputsTotalValue() int {
	total := 0
	for _, out := range t.Outputs {
		if out.Recipient == t.SenderAddress {
			continue
		}
		total += out.Value
	}
	return total
}

// SenderPublicKeyHex recovers the sender's RSA public key from the
// scriptSig of the transaction's first input (every P2PKH scriptSig
// carries "<sig> <pubKey>"). ExecuteTransactions uses this to verify the
// transaction's overall signature without the Transaction type needing any
// notion of "keys" beyond the scripts it already carries.
func (t *Transaction) SenderPublicKeyHex() (string, bool) {
	if len(t.Inputs) == 0 {
		return "", false
	}
	tokens, err := parseScriptSigOperands(t.Inputs[0].ScriptSig)
	if err != nil || len(tokens) < 2 {
		return "", false
	}
	return tokens[1], true
}

// parseScriptSigOperands extracts the operand values of a "<a> <b>" style
// scriptSig, in order.
func parseScriptSigOperands(scriptSig string) ([]string, error) {
	var operands []string
	var cur []rune
	inOperand := false
	for _, r := range scriptSig {
		switch {
		case r == '<':
			inOperand = true
			cur = cur[:0]
		case r == '>':
			inOperand = false
			operands = append(operands, string(cur))
		case inOperand:
			cur = append(cur, r)
		}
	}
	return operands, nil
}

// p2pkhScriptSig builds the spender's unlocking script: "<sig> <pubKey>".
func p2pkhScriptSig(sigHex, pubKeyHex string) string {
	return "<" + sigHex + "> <" + pubKeyHex + ">"
}

// p2pkhScriptPubKey builds the standard P2PKH locking script:
// "dup hash160 <pubKeyHash> equalVerify checkSig".
func p2pkhScriptPubKey(pubKeyHash string) string {
	return "dup hash160 <" + pubKeyHash + "> equalVerify checkSig"
}
