package chain

import (
	"github.com/kalymgr/tlcd/primitives"
	"github.com/pkg/errors"
)

// selectInputs greedily selects entries, in the order given, until their
// combined value is at least requiredTotal, building a signed TxInput for
// each. account signs each input's own prevTxHash.
func selectInputs(entries []UTXOEntry, account *primitives.Account, requiredTotal int) ([]TxInput, int, error) {
	var inputs []TxInput
	total := 0
	for _, entry := range entries {
		if total >= requiredTotal {
			break
		}
		sig, err := account.Sign(entry.Key.TxHash)
		if err != nil {
			return nil, 0, errors.Wrap(err, "signing transaction input")
		}
		inputs = append(inputs, TxInput{
			PrevTxHash:     entry.Key.TxHash,
			PrevTxOutIndex: entry.Key.Index,
			ScriptSig:      p2pkhScriptSig(sig, account.PublicKeyHex()),
			Value:          entry.Output.Value,
			Recipient:      entry.Output.Recipient,
		})
		total += entry.Output.Value
	}
	return inputs, total, nil
}
