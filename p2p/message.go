package p2p

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// MsgHeader is the envelope's fixed header. PayloadSize is measured in
// encoded msgData bytes and lets a receiver drop an oversized message before
// it bothers unmarshaling the payload.
type MsgHeader struct {
	StartString string  `json:"startString"`
	CommandName Command `json:"commandName"`
	PayloadSize int     `json:"payloadSize"`
	CheckSum    string  `json:"checkSum"`
}

// envelope is the on-wire shape: one JSON object per line, newline
// terminated.
type envelope struct {
	MsgHeader MsgHeader       `json:"msgHeader"`
	MsgData   json.RawMessage `json:"msgData"`
}

// MaxPayloadSize bounds a single message's encoded payload; messages
// advertising more are dropped without being parsed.
const MaxPayloadSize = 1 << 20

// writeMessage encodes cmd/payload as one envelope line and writes it to w.
func writeMessage(w io.Writer, cmd Command, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshaling message payload")
	}
	env := envelope{
		MsgHeader: MsgHeader{
			StartString: StartString,
			CommandName: cmd,
			PayloadSize: len(data),
			CheckSum:    checksum(data),
		},
		MsgData: data,
	}
	line, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshaling message envelope")
	}
	line = append(line, '\n')
	_, err = w.Write(line)
	return errors.Wrap(err, "writing message")
}

// readMessage reads one newline-terminated envelope from r and returns its
// command and raw payload. A payload advertising a size over MaxPayloadSize
// or whose checksum doesn't match is dropped with an error rather than
// returned, per the "receivers MAY drop oversized messages" latitude.
func readMessage(r *bufio.Reader) (Command, json.RawMessage, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return 0, nil, err
	}
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return 0, nil, errors.Wrap(err, "unmarshaling message envelope")
	}
	if env.MsgHeader.StartString != StartString {
		return 0, nil, errors.Errorf("unrecognized startString %q", env.MsgHeader.StartString)
	}
	if env.MsgHeader.PayloadSize > MaxPayloadSize {
		return 0, nil, errors.Errorf("oversized message: %d bytes", env.MsgHeader.PayloadSize)
	}
	if checksum(env.MsgData) != env.MsgHeader.CheckSum {
		return 0, nil, errors.New("message checksum mismatch")
	}
	return env.MsgHeader.CommandName, env.MsgData, nil
}

// checksum is a weak, fast integrity check over a payload — not a
// cryptographic authenticator, just enough to catch truncated writes.
func checksum(data []byte) string {
	var sum uint32
	for _, b := range data {
		sum = sum*31 + uint32(b)
	}
	return encodeUint32(sum)
}

func encodeUint32(v uint32) string {
	const hex = "0123456789abcdef"
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = hex[v&0xf]
		v >>= 4
	}
	return string(buf)
}

// VersionPayload is the VERSION message body.
type VersionPayload struct {
	Version            int     `json:"version"`
	Services           int     `json:"services"`
	Timestamp          float64 `json:"timestamp"`
	AddrReceivServices int     `json:"addrReceivServices"`
	IPAddress          string  `json:"ipAddress"`
	Port               int     `json:"port"`
}

// VerAckPayload is the empty VERACK message body.
type VerAckPayload struct{}

// RejectPayload is the REJECT message body.
type RejectPayload struct {
	MsgRejectedType string `json:"msgRejectedType"`
	RejectCode      int    `json:"rejectCode"`
	Reason          string `json:"reason,omitempty"`
}

// GetAddrPayload is the empty GETADDR message body.
type GetAddrPayload struct{}

// AddrPayload is the ADDR message body.
type AddrPayload struct {
	IPAddresses    []string `json:"ipAddresses"`
	IPAddressCount int      `json:"ipAddressCount"`
}

// PingPongPayload is shared by PING and PONG; a PONG echoes the nonce it was
// sent in response to.
type PingPongPayload struct {
	Nonce int `json:"nonce"`
}

// GetBlocksPayload is the GETBLOCKS message body.
type GetBlocksPayload struct {
	HeaderHash string `json:"headerHash"`
}

// InventoryItem is one entry of an INV or GETDATA list.
type InventoryItem struct {
	Type       int    `json:"type"`
	Identifier string `json:"identifier"`
}

// InvPayload is shared by INV and GETDATA.
type InvPayload struct {
	Inventory []InventoryItem `json:"inventory"`
	Count     int             `json:"count"`
}

// BlockPayload is the BLOCK message body: an implementation-defined,
// round-trippable block encoding. This design carries the block's
// encoding/json rendering (struct field order, not the lexicographic-key
// canonical form used for hashing).
type BlockPayload struct {
	Payload string `json:"payload"`
}
