package config

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cast"

	"github.com/warp-js/ipc-server/internal/errors"
)

// Bootstrap is the startup record the host writes to an extension's stdin.
//
// Wire format:
//
//	{"nlConnectToken": "...", "nlExtensionId": "calc", "nlPort": 5006, "nlToken": "..."}
//
// nlPort may also be sent as a numeric string.
type Bootstrap struct {
	ConnectToken string `json:"nlConnectToken"`
	ExtensionID  string `json:"nlExtensionId"`
	Port         int    `json:"nlPort"`
	Token        string `json:"nlToken"`
}

var (
	bootstrapSchemaOnce sync.Once
	bootstrapSchema     *jsonschema.Resolved
	bootstrapSchemaErr  error
)

func ptr[T any](v T) *T { return &v }

// resolvedBootstrapSchema builds the schema every bootstrap record must satisfy.
func resolvedBootstrapSchema() (*jsonschema.Resolved, error) {
	bootstrapSchemaOnce.Do(func() {
		nonEmpty := func() *jsonschema.Schema {
			return &jsonschema.Schema{Type: "string", MinLength: ptr(1)}
		}

		schema := &jsonschema.Schema{
			Type:     "object",
			Required: []string{"nlConnectToken", "nlExtensionId", "nlPort", "nlToken"},
			Properties: map[string]*jsonschema.Schema{
				"nlConnectToken": nonEmpty(),
				"nlExtensionId":  nonEmpty(),
				"nlToken":        nonEmpty(),
				"nlPort": {
					Types:   []string{"integer", "string"},
					Minimum: ptr(1.0),
					Maximum: ptr(65535.0),
					Pattern: "^[0-9]+$",
				},
			},
		}

		bootstrapSchema, bootstrapSchemaErr = schema.Resolve(nil)
	})

	return bootstrapSchema, bootstrapSchemaErr
}

// ReadBootstrap decodes and validates one bootstrap record from r.
// Any missing or malformed field is reported as a BootstrapError.
func ReadBootstrap(r io.Reader) (*Bootstrap, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &errors.BootstrapError{Err: fmt.Errorf("decode: %w", err)}
	}

	return ParseBootstrap(raw)
}

// ParseBootstrap validates and decodes a bootstrap record.
func ParseBootstrap(data []byte) (*Bootstrap, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, &errors.BootstrapError{Err: fmt.Errorf("decode: %w", err)}
	}

	schema, err := resolvedBootstrapSchema()
	if err != nil {
		return nil, &errors.BootstrapError{Err: fmt.Errorf("resolve schema: %w", err)}
	}

	if err := schema.Validate(instance); err != nil {
		return nil, &errors.BootstrapError{Err: err}
	}

	var record struct {
		ConnectToken string          `json:"nlConnectToken"`
		ExtensionID  string          `json:"nlExtensionId"`
		Port         json.RawMessage `json:"nlPort"`
		Token        string          `json:"nlToken"`
	}

	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &errors.BootstrapError{Err: fmt.Errorf("decode: %w", err)}
	}

	port, err := parsePort(record.Port)
	if err != nil {
		return nil, &errors.BootstrapError{Err: err}
	}

	return &Bootstrap{
		ConnectToken: record.ConnectToken,
		ExtensionID:  record.ExtensionID,
		Port:         port,
		Token:        record.Token,
	}, nil
}

// parsePort accepts 5006 or "5006".
func parsePort(raw json.RawMessage) (int, error) {
	var port int
	if err := json.Unmarshal(raw, &port); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("nlPort: %w", err)
		}

		port, err = cast.ToIntE(s)
		if err != nil {
			return 0, fmt.Errorf("nlPort: %w", err)
		}
	}

	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("nlPort: %d out of range", port)
	}

	return port, nil
}

// Marshal encodes the record in its wire format.
func (b *Bootstrap) Marshal() ([]byte, error) {
	return json.Marshal(b)
}
