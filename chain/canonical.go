package chain

import (
	"encoding/json"

	"github.com/kalymgr/tlcd/primitives"
)

// canonicalOutput renders a single output as lexicographic-key JSON.
// encoding/json sorts map[string]interface{} keys alphabetically, which is
// exactly the pinned byte contract: lexicographic-key JSON, no whitespace,
// UTF-8, no trailing newline.
func canonicalOutput(out TxOutput) string {
	b, _ := json.Marshal(map[string]interface{}{
		"recipient":    out.Recipient,
		"scriptPubKey": out.ScriptPubKey,
		"sender":       out.Sender,
		"value":        out.Value,
	})
	return string(b)
}

// canonicalText renders the transaction's signed preimage:
// {sender, txOutputList, versionNo, outCounter}, where txOutputList is the
// concatenation of every output's canonical rendering *except* the change
// output (the one whose recipient equals the sender). Inputs are
// deliberately excluded, since input selection happens after signing at
// mining time.
func (t *Transaction) canonicalText() string {
	var outputList string
	nonChangeCount := 0
	for _, out := range t.Outputs {
		if out.Recipient == t.SenderAddress {
			continue
		}
		outputList += canonicalOutput(out)
		nonChangeCount++
	}

	b, _ := json.Marshal(map[string]interface{}{
		"outCounter":   nonChangeCount,
		"sender":       t.SenderAddress,
		"txOutputList": outputList,
		"versionNo":    t.Version,
	})
	return string(b)
}

// ComputeHash sets TxHash to doubleSHA256(canonicalText). It must be called
// after every non-change output has been added and before the transaction
// is signed.
func (t *Transaction) ComputeHash() {
	t.TxHash = primitives.DoubleSHA256Hex(t.canonicalText())
}
