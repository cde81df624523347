package tls12

import (
	"bytes"
	"crypto"
	"encoding/hex"
	"errors"
	"testing"
)

func TestMarshalFinished(t *testing.T) {
	verifyData, _ := hex.DecodeString("31bbf9d6680e909120cdbfd2")

	msg, err := MarshalFinished(verifyData)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want, _ := hex.DecodeString("1400000c31bbf9d6680e909120cdbfd2")
	if !bytes.Equal(msg, want) {
		t.Errorf("message mismatch: got %x, want %x", msg, want)
	}

	if _, err := MarshalFinished(make([]byte, 11)); err == nil {
		t.Error("expected error for short verify_data")
	}
	if _, err := MarshalFinished(make([]byte, 13)); err == nil {
		t.Error("expected error for long verify_data")
	}
}

func TestParseFinished(t *testing.T) {
	msg, _ := hex.DecodeString("1400000c31bbf9d6680e909120cdbfd2")
	got, err := ParseFinished(msg)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want, _ := hex.DecodeString("31bbf9d6680e909120cdbfd2")
	if !bytes.Equal(got, want) {
		t.Errorf("verify_data mismatch: got %x, want %x", got, want)
	}

	tests := []struct {
		name string
		msg  string
	}{
		{"WrongHandshakeType", "1500000c31bbf9d6680e909120cdbfd2"},
		{"WrongBodyLength", "1400000b31bbf9d6680e909120cdbf"},
		{"Truncated", "1400000c31bbf9d6"},
		{"TrailingBytes", "1400000c31bbf9d6680e909120cdbfd200"},
		{"Empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, _ := hex.DecodeString(tt.msg)
			if _, err := ParseFinished(msg); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestVerifyFinishedData(t *testing.T) {
	verifyData, _ := hex.DecodeString("31bbf9d6680e909120cdbfd2")
	same, _ := hex.DecodeString("31bbf9d6680e909120cdbfd2")

	if err := VerifyFinishedData(verifyData, same); err != nil {
		t.Errorf("matching verify_data rejected: %v", err)
	}

	tampered := make([]byte, len(same))
	copy(tampered, same)
	tampered[0] ^= 0x01
	err := VerifyFinishedData(verifyData, tampered)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	var cryptoErr *CryptoError
	if !errors.As(err, &cryptoErr) || cryptoErr.Type != ErrorVerifyData {
		t.Errorf("unexpected error: %v", err)
	}
	if cryptoErr.AlertName() != "decrypt_error" {
		t.Errorf("alert: got %s, want decrypt_error", cryptoErr.AlertName())
	}
}

func TestFinishedEndToEnd(t *testing.T) {
	th, err := NewTranscriptHash()
	if err != nil {
		t.Fatalf("failed to create transcript hash: %v", err)
	}
	for _, msg := range [][]byte{
		[]byte("client hello"),
		[]byte("server hello"),
		[]byte("certificate"),
		[]byte("server hello done"),
		[]byte("client key exchange"),
	} {
		th.Update(msg)
	}
	digest, err := th.Digest(crypto.SHA256)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}

	ks, err := NewKeySchedule(TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		bytes.Repeat([]byte{0xc1}, 32), bytes.Repeat([]byte{0x51}, 32))
	if err != nil {
		t.Fatalf("failed to create key schedule: %v", err)
	}
	ks.DeriveMasterSecret(bytes.Repeat([]byte{0x42}, 32))

	clientVerify, err := ks.DeriveFinishedData(digest, true)
	if err != nil {
		t.Fatalf("verify_data derivation failed: %v", err)
	}
	msg, err := MarshalFinished(clientVerify)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// the peer parses the message and compares against its own derivation
	received, err := ParseFinished(msg)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	expected, err := ks.DeriveFinishedData(digest, true)
	if err != nil {
		t.Fatalf("peer derivation failed: %v", err)
	}
	if err := VerifyFinishedData(expected, received); err != nil {
		t.Errorf("matching finished rejected: %v", err)
	}

	// a transcript that diverged by one message must not verify
	th.Update([]byte("unexpected extra message"))
	divergedDigest, err := th.Digest(crypto.SHA256)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	diverged, err := ks.DeriveFinishedData(divergedDigest, true)
	if err != nil {
		t.Fatalf("diverged derivation failed: %v", err)
	}
	if err := VerifyFinishedData(diverged, received); err == nil {
		t.Error("diverged transcript still verified")
	}
	t.Logf("✅ finished flow binds verify_data to the exact transcript")
}
