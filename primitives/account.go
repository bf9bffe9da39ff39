package primitives

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"

	"github.com/pkg/errors"
)

// AddressVersion is the single version byte prefixed to a public key before
// hash160 is taken to derive an address.
const AddressVersion byte = 0x00

// rsaKeyBits is the fixed RSA key size every account uses.
const rsaKeyBits = 1024

// Account is a key pair plus its derived address and public-key fingerprint.
type Account struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey

	pubKeyHex  string
	address    string
	pubKeyHash string
}

// NewAccount generates a fresh RSA-1024 key pair and derives its address and
// public-key hash.
func NewAccount() (*Account, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, errors.Wrap(err, "generating RSA key pair")
	}
	return newAccountFromKey(key)
}

func newAccountFromKey(key *rsa.PrivateKey) (*Account, error) {
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling public key")
	}
	pubKeyHex := hex.EncodeToString(pubDER)

	a := &Account{
		privateKey: key,
		publicKey:  &key.PublicKey,
		pubKeyHex:  pubKeyHex,
		pubKeyHash: Hash160Hex(pubKeyHex),
	}
	versionHex := hex.EncodeToString([]byte{AddressVersion})
	a.address = Hash160Hex(versionHex + pubKeyHex)
	return a, nil
}

// Address is the account's address, hash160(versionByte || pubKeyDERHex).
func (a *Account) Address() string { return a.address }

// PubKeyHash is hash160(pubKeyDERHex), the recipient fingerprint embedded in
// P2PKH locking scripts.
func (a *Account) PubKeyHash() string { return a.pubKeyHash }

// PublicKeyHex is the hex-encoded DER of the account's public key, the
// operand embedded in scriptSig / checked against pubKeyHash by the script
// VM's hash160/equalVerify pair.
func (a *Account) PublicKeyHex() string { return a.pubKeyHex }

// Sign signs txHash (a hex digest string) with the account's private key
// and returns the hex-encoded signature.
func (a *Account) Sign(txHash string) (string, error) {
	digest := sha256.Sum256([]byte(txHash))
	sig, err := rsa.SignPKCS1v15(rand.Reader, a.privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", errors.Wrap(err, "signing transaction hash")
	}
	return hex.EncodeToString(sig), nil
}

// VerifySignature verifies sigHex against txHash under the public key
// encoded as pubKeyHex (the same hex-DER form PublicKeyHex returns).
func VerifySignature(pubKeyHex, txHash, sigHex string) bool {
	pub, err := decodePublicKeyHex(pubKeyHex)
	if err != nil {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(txHash))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}

func decodePublicKeyHex(pubKeyHex string) (*rsa.PublicKey, error) {
	der, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "decoding hex public key")
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "parsing DER public key")
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return rsaKey, nil
}
