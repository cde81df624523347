package main

import (
	"crypto"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"crosstls/tls12"
)

// VectorFile is one JSON document of conformance vectors.
type VectorFile struct {
	Name    string   `json:"name"`
	Vectors []Vector `json:"vectors"`
}

// Vector is a single core operation to execute. Which fields apply depends
// on Op; all byte-valued fields are hex strings. A vector with an "expected"
// value is compared, one without is captured (its computed bytes are
// printed), and "expected_error" names the alert a failing operation must
// map to.
type Vector struct {
	Name string `json:"name"`
	Op   string `json:"op"`

	Hash  string `json:"hash,omitempty"`
	Suite string `json:"suite,omitempty"`

	// prf
	Secret string `json:"secret,omitempty"`
	Label  string `json:"label,omitempty"`
	Seed   string `json:"seed,omitempty"`
	Length int    `json:"length,omitempty"`

	// master_secret
	PreMasterSecret string `json:"pre_master_secret,omitempty"`
	SessionHash     string `json:"session_hash,omitempty"`

	// key_block / verify_data
	MasterSecret string `json:"master_secret,omitempty"`
	ClientRandom string `json:"client_random,omitempty"`
	ServerRandom string `json:"server_random,omitempty"`
	Digest       string `json:"digest,omitempty"`

	// transcript
	Messages []string `json:"messages,omitempty"`

	// seal / open
	Key         string `json:"key,omitempty"`
	FixedIV     string `json:"fixed_iv,omitempty"`
	Seq         uint64 `json:"seq,omitempty"`
	ContentType uint8  `json:"content_type,omitempty"`
	Version     string `json:"version,omitempty"`
	Plaintext   string `json:"plaintext,omitempty"`
	Body        string `json:"body,omitempty"`

	// pss_encode / pss_sign
	Salt            string `json:"salt,omitempty"`
	EMBits          int    `json:"em_bits,omitempty"`
	Modulus         string `json:"modulus,omitempty"`
	PublicExponent  int    `json:"public_exponent,omitempty"`
	PrivateExponent string `json:"private_exponent,omitempty"`
	PrimeP          string `json:"prime_p,omitempty"`
	PrimeQ          string `json:"prime_q,omitempty"`

	Expected      string `json:"expected,omitempty"`
	ExpectedError string `json:"expected_error,omitempty"`
}

var hashByName = map[string]crypto.Hash{
	"SHA-1":   crypto.SHA1,
	"SHA-256": crypto.SHA256,
	"SHA-384": crypto.SHA384,
	"SHA-512": crypto.SHA512,
}

// hashAlg resolves the vector's hash name, defaulting to SHA-256 (the
// TLS 1.2 baseline PRF hash) when absent.
func (v *Vector) hashAlg() (crypto.Hash, error) {
	name := v.Hash
	if name == "" {
		name = "SHA-256"
	}
	alg, ok := hashByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown hash %q", name)
	}
	return alg, nil
}

func (v *Vector) hashFunc() (func() hash.Hash, error) {
	alg, err := v.hashAlg()
	if err != nil {
		return nil, err
	}
	return tls12.HashFunc(alg)
}

// recordVersion parses the 4-digit hex version field, defaulting to TLS 1.2.
func (v *Vector) recordVersion() (uint16, error) {
	if v.Version == "" {
		return tls12.VersionTLS12, nil
	}
	parsed, err := strconv.ParseUint(v.Version, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("field \"version\" is not a hex version: %v", err)
	}
	return uint16(parsed), nil
}

func (v *Vector) recordType() uint8 {
	if v.ContentType == 0 {
		return tls12.RecordTypeHandshake
	}
	return v.ContentType
}

// fieldReader decodes hex-valued vector fields, remembering the first
// failure so call sites stay linear.
type fieldReader struct {
	err error
}

func (fr *fieldReader) bytes(name, value string) []byte {
	if fr.err != nil || value == "" {
		return nil
	}
	decoded, err := hex.DecodeString(value)
	if err != nil {
		fr.err = fmt.Errorf("field %q is not valid hex: %v", name, err)
		return nil
	}
	return decoded
}

func (fr *fieldReader) bigInt(name, value string) *big.Int {
	if fr.err != nil {
		return nil
	}
	if value == "" {
		fr.err = fmt.Errorf("field %q is required", name)
		return nil
	}
	parsed, ok := new(big.Int).SetString(value, 16)
	if !ok {
		fr.err = fmt.Errorf("field %q is not valid hex", name)
		return nil
	}
	return parsed
}

// ExecuteVector runs one vector against the core and returns the computed
// bytes. Errors from the core come back unwrapped so the caller can match
// them against expected_error by alert name.
func ExecuteVector(v *Vector) ([]byte, error) {
	switch v.Op {
	case "prf":
		return executePRF(v)
	case "master_secret":
		return executeMasterSecret(v)
	case "key_block":
		return executeKeyBlock(v)
	case "verify_data":
		return executeVerifyData(v)
	case "transcript":
		return executeTranscript(v)
	case "seal":
		return executeSeal(v)
	case "open":
		return executeOpen(v)
	case "pss_encode":
		return executePSSEncode(v)
	case "pss_sign":
		return executePSSSign(v)
	default:
		return nil, fmt.Errorf("unknown op %q", v.Op)
	}
}

func executePRF(v *Vector) ([]byte, error) {
	hashFunc, err := v.hashFunc()
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{}
	secret := fr.bytes("secret", v.Secret)
	seed := fr.bytes("seed", v.Seed)
	if fr.err != nil {
		return nil, fr.err
	}
	return tls12.PRF(hashFunc, secret, v.Label, seed, v.Length), nil
}

func executeMasterSecret(v *Vector) ([]byte, error) {
	hashFunc, err := v.hashFunc()
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{}
	preMasterSecret := fr.bytes("pre_master_secret", v.PreMasterSecret)

	// A session_hash selects the extended derivation (RFC 7627).
	if v.SessionHash != "" {
		sessionHash := fr.bytes("session_hash", v.SessionHash)
		if fr.err != nil {
			return nil, fr.err
		}
		return tls12.DeriveMasterSecretExtended(hashFunc, preMasterSecret, sessionHash), nil
	}

	clientRandom := fr.bytes("client_random", v.ClientRandom)
	serverRandom := fr.bytes("server_random", v.ServerRandom)
	if fr.err != nil {
		return nil, fr.err
	}
	return tls12.DeriveMasterSecret(hashFunc, preMasterSecret, clientRandom, serverRandom), nil
}

func executeKeyBlock(v *Vector) ([]byte, error) {
	spec, err := tls12.SuiteByName(v.Suite)
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{}
	masterSecret := fr.bytes("master_secret", v.MasterSecret)
	clientRandom := fr.bytes("client_random", v.ClientRandom)
	serverRandom := fr.bytes("server_random", v.ServerRandom)
	if fr.err != nil {
		return nil, fr.err
	}
	keyBlock, err := tls12.DeriveKeyBlock(spec, masterSecret, clientRandom, serverRandom)
	if err != nil {
		return nil, err
	}

	// Field order matches the derivation stream, so the concatenation
	// reproduces the raw PRF expansion.
	var out []byte
	out = append(out, keyBlock.ClientMACKey...)
	out = append(out, keyBlock.ServerMACKey...)
	out = append(out, keyBlock.ClientWriteKey...)
	out = append(out, keyBlock.ServerWriteKey...)
	out = append(out, keyBlock.ClientWriteIV...)
	out = append(out, keyBlock.ServerWriteIV...)
	return out, nil
}

func executeVerifyData(v *Vector) ([]byte, error) {
	hashFunc, err := v.hashFunc()
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{}
	masterSecret := fr.bytes("master_secret", v.MasterSecret)
	digest := fr.bytes("digest", v.Digest)
	if fr.err != nil {
		return nil, fr.err
	}
	return tls12.ComputeVerifyData(hashFunc, masterSecret, v.Label, digest), nil
}

func executeTranscript(v *Vector) ([]byte, error) {
	alg, err := v.hashAlg()
	if err != nil {
		return nil, err
	}
	transcript, err := tls12.NewTranscriptHash(alg)
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{}
	for i, message := range v.Messages {
		transcript.Update(fr.bytes(fmt.Sprintf("messages[%d]", i), message))
	}
	if fr.err != nil {
		return nil, fr.err
	}
	return transcript.Digest(alg)
}

func executeSeal(v *Vector) ([]byte, error) {
	spec, err := tls12.SuiteByName(v.Suite)
	if err != nil {
		return nil, err
	}
	version, err := v.recordVersion()
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{}
	key := fr.bytes("key", v.Key)
	fixedIV := fr.bytes("fixed_iv", v.FixedIV)
	plaintext := fr.bytes("plaintext", v.Plaintext)
	if fr.err != nil {
		return nil, fr.err
	}
	return tls12.SealRecord(spec, key, fixedIV, v.Seq, v.recordType(), version, plaintext)
}

func executeOpen(v *Vector) ([]byte, error) {
	spec, err := tls12.SuiteByName(v.Suite)
	if err != nil {
		return nil, err
	}
	version, err := v.recordVersion()
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{}
	key := fr.bytes("key", v.Key)
	fixedIV := fr.bytes("fixed_iv", v.FixedIV)
	body := fr.bytes("body", v.Body)
	if fr.err != nil {
		return nil, fr.err
	}
	return tls12.OpenRecord(spec, key, fixedIV, v.Seq, v.recordType(), version, body)
}

func executePSSEncode(v *Vector) ([]byte, error) {
	hashFunc, err := v.hashFunc()
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{}
	digest := fr.bytes("digest", v.Digest)
	salt := fr.bytes("salt", v.Salt)
	if fr.err != nil {
		return nil, fr.err
	}
	return tls12.EncodePSS(hashFunc, digest, salt, v.EMBits)
}

func executePSSSign(v *Vector) ([]byte, error) {
	hashFunc, err := v.hashFunc()
	if err != nil {
		return nil, err
	}
	fr := &fieldReader{}
	digest := fr.bytes("digest", v.Digest)
	salt := fr.bytes("salt", v.Salt)
	modulus := fr.bigInt("modulus", v.Modulus)
	privateExponent := fr.bigInt("private_exponent", v.PrivateExponent)
	primeP := fr.bigInt("prime_p", v.PrimeP)
	primeQ := fr.bigInt("prime_q", v.PrimeQ)
	if fr.err != nil {
		return nil, fr.err
	}
	publicExponent := v.PublicExponent
	if publicExponent == 0 {
		publicExponent = 65537
	}
	key, err := tls12.NewSigningKey(modulus, publicExponent, privateExponent, primeP, primeQ)
	if err != nil {
		return nil, err
	}
	return key.SignPSS(hashFunc, digest, salt)
}

// LoadVectorFiles reads, validates, and decodes every *.json file in dir,
// sorted by name for a stable execution order.
func LoadVectorFiles(dir string) ([]*VectorFile, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list vector files: %v", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no vector files found in %s", dir)
	}
	sort.Strings(paths)

	files := make([]*VectorFile, 0, len(paths))
	for _, path := range paths {
		file, err := LoadVectorFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", filepath.Base(path), err)
		}
		files = append(files, file)
	}
	return files, nil
}

// LoadVectorFile reads one vector document, validating it against the
// embedded schema before decoding.
func LoadVectorFile(path string) (*VectorFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateVectorDocument(raw); err != nil {
		return nil, err
	}
	var file VectorFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to decode vector file: %v", err)
	}
	if file.Name == "" {
		file.Name = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return &file, nil
}
