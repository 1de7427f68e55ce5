// Package payloadschema validates incoming asset payloads against the
// embedded JSON schema before they reach the catalog.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed asset.schema.json
var assetSchemaJSON string

// AssetPayload is a validated ingestion payload for one digitized record.
type AssetPayload struct {
	PayloadVersion string   `json:"payload_version"`
	AssetID        string   `json:"asset_id"`
	Title          string   `json:"title"`
	Description    *string  `json:"description,omitempty"`
	OCRText        *string  `json:"ocr_text,omitempty"`
	Entities       []string `json:"entities,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	Collection     *string  `json:"collection,omitempty"`
	GISZone        *string  `json:"gis_zone,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Category       *string  `json:"category,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func ValidateAssetPayload(payload json.RawMessage) (*AssetPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var asset AssetPayload
	if err := json.Unmarshal(normalized, &asset); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&asset); err != nil {
		return nil, err
	}

	return &asset, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("asset.schema.json", strings.NewReader(assetSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("asset.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(asset *AssetPayload) error {
	if asset == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(asset.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(asset.AssetID) == "" {
		return fmt.Errorf("asset_id must not be empty")
	}
	if strings.TrimSpace(asset.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}

	// A coordinate on its own is unusable; both halves or neither.
	if (asset.Latitude == nil) != (asset.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be provided together")
	}

	if asset.Confidence != nil && (*asset.Confidence < 0 || *asset.Confidence > 1) {
		return fmt.Errorf("confidence must be within [0, 1]")
	}

	for i, entity := range asset.Entities {
		if strings.TrimSpace(entity) == "" {
			return fmt.Errorf("entities[%d] must not be empty", i)
		}
	}
	for i, keyword := range asset.Keywords {
		if strings.TrimSpace(keyword) == "" {
			return fmt.Errorf("keywords[%d] must not be empty", i)
		}
	}

	return nil
}
