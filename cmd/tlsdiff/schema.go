package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// vectorFileSchema constrains vector documents before any vector runs.
// Byte-valued fields must be even-length hex; op and hash names are closed
// enums; unknown fields are rejected so a typo cannot silently turn a
// compare vector into a capture vector.
const vectorFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["vectors"],
  "properties": {
    "name": {"type": "string"},
    "vectors": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "op"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "op": {
            "enum": [
              "prf", "master_secret", "key_block", "verify_data",
              "transcript", "seal", "open", "pss_encode", "pss_sign"
            ]
          },
          "hash": {"enum": ["SHA-1", "SHA-256", "SHA-384", "SHA-512"]},
          "suite": {"type": "string"},
          "secret": {"$ref": "#/definitions/hex"},
          "label": {"type": "string"},
          "seed": {"$ref": "#/definitions/hex"},
          "length": {"type": "integer"},
          "pre_master_secret": {"$ref": "#/definitions/hex"},
          "session_hash": {"$ref": "#/definitions/hex"},
          "master_secret": {"$ref": "#/definitions/hex"},
          "client_random": {"$ref": "#/definitions/hex"},
          "server_random": {"$ref": "#/definitions/hex"},
          "digest": {"$ref": "#/definitions/hex"},
          "messages": {"type": "array", "items": {"$ref": "#/definitions/hex"}},
          "key": {"$ref": "#/definitions/hex"},
          "fixed_iv": {"$ref": "#/definitions/hex"},
          "seq": {"type": "integer", "minimum": 0},
          "content_type": {"type": "integer", "minimum": 20, "maximum": 23},
          "version": {"type": "string", "pattern": "^[0-9a-fA-F]{4}$"},
          "plaintext": {"$ref": "#/definitions/hex"},
          "body": {"$ref": "#/definitions/hex"},
          "salt": {"$ref": "#/definitions/hex"},
          "em_bits": {"type": "integer", "minimum": 0},
          "modulus": {"$ref": "#/definitions/hex"},
          "public_exponent": {"type": "integer", "minimum": 3},
          "private_exponent": {"$ref": "#/definitions/hex"},
          "prime_p": {"$ref": "#/definitions/hex"},
          "prime_q": {"$ref": "#/definitions/hex"},
          "expected": {"$ref": "#/definitions/hex"},
          "expected_error": {"type": "string"}
        }
      }
    }
  },
  "definitions": {
    "hex": {"type": "string", "pattern": "^([0-9a-fA-F]{2})*$"}
  }
}`

// Compiled once, shared by every vector file load
var (
	compiledSchema     *gojsonschema.Schema
	compileSchemaOnce  sync.Once
	compileSchemaError error
)

// ValidateVectorDocument checks raw vector-file JSON against the embedded
// schema, aggregating every violation into one error message.
func ValidateVectorDocument(document []byte) error {
	compileSchemaOnce.Do(func() {
		schemaLoader := gojsonschema.NewStringLoader(vectorFileSchema)
		compiledSchema, compileSchemaError = gojsonschema.NewSchema(schemaLoader)
	})
	if compileSchemaError != nil {
		return fmt.Errorf("failed to compile vector schema: %w", compileSchemaError)
	}

	docLoader := gojsonschema.NewBytesLoader(document)
	result, err := compiledSchema.Validate(docLoader)
	if err != nil {
		return fmt.Errorf("vector validation failed: %w", err)
	}
	if !result.Valid() {
		var b strings.Builder
		for _, e := range result.Errors() {
			if b.Len() > 0 {
				b.WriteString("; ")
			}
			b.WriteString(e.String())
		}
		return fmt.Errorf("vector validation failed: %s", b.String())
	}
	return nil
}
