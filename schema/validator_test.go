package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func validPayload() map[string]any {
	return map[string]any{
		"payload_version": "v1",
		"asset_id":        "scan-0001",
		"title":           "Grand Opening Ceremony 1950",
		"description":     "Crowd gathered at the new fountain",
		"ocr_text":        "GRAND OPENING 1950",
		"entities":        []string{"Antonio Hall"},
		"keywords":        []string{"ceremony", "fountain"},
		"collection":      "box-12",
		"gis_zone":        "campus/north",
		"latitude":        48.137,
		"longitude":       11.575,
		"category":        "photograph",
		"confidence":      0.92,
	}
}

func marshalPayload(t *testing.T, payload map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestValidateAssetPayload_Valid(t *testing.T) {
	t.Parallel()

	asset, err := ValidateAssetPayload(marshalPayload(t, validPayload()))
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
	if asset.AssetID != "scan-0001" {
		t.Fatalf("unexpected asset id %q", asset.AssetID)
	}
	if asset.Latitude == nil || asset.Longitude == nil {
		t.Fatalf("expected coordinates to survive validation")
	}
	if asset.Confidence == nil || *asset.Confidence != 0.92 {
		t.Fatalf("unexpected confidence %v", asset.Confidence)
	}
}

func TestValidateAssetPayload_MinimalRecord(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{"payload_version":"v1","asset_id":"scan-2","title":"IMG_2041"}`)
	asset, err := ValidateAssetPayload(raw)
	if err != nil {
		t.Fatalf("minimal payload should validate, got %v", err)
	}
	if asset.Description != nil || asset.Latitude != nil {
		t.Fatalf("optional fields should stay nil")
	}
}

func TestValidateAssetPayload_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(map[string]any)
		wantErr string
	}{
		{
			name:    "missing title",
			mutate:  func(p map[string]any) { delete(p, "title") },
			wantErr: "schema validation failed",
		},
		{
			name:    "blank asset id",
			mutate:  func(p map[string]any) { p["asset_id"] = "  " },
			wantErr: "asset_id",
		},
		{
			name:    "wrong payload version",
			mutate:  func(p map[string]any) { p["payload_version"] = "v2" },
			wantErr: "schema validation failed",
		},
		{
			name:    "latitude without longitude",
			mutate:  func(p map[string]any) { delete(p, "longitude") },
			wantErr: "provided together",
		},
		{
			name:    "confidence out of range",
			mutate:  func(p map[string]any) { p["confidence"] = 1.5 },
			wantErr: "schema validation failed",
		},
		{
			name:    "latitude out of range",
			mutate:  func(p map[string]any) { p["latitude"] = 91.0 },
			wantErr: "schema validation failed",
		},
		{
			name:    "empty entity",
			mutate:  func(p map[string]any) { p["entities"] = []string{""} },
			wantErr: "schema validation failed",
		},
		{
			name:    "unknown field",
			mutate:  func(p map[string]any) { p["color"] = "sepia" },
			wantErr: "schema validation failed",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			payload := validPayload()
			tc.mutate(payload)
			_, err := ValidateAssetPayload(marshalPayload(t, payload))
			if err == nil {
				t.Fatalf("expected rejection")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateAssetPayload_MalformedJSON(t *testing.T) {
	t.Parallel()

	if _, err := ValidateAssetPayload(json.RawMessage(`{"payload_version":`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := ValidateAssetPayload(json.RawMessage(`{} {}`)); err == nil {
		t.Fatalf("expected trailing content error")
	}
	if _, err := ValidateAssetPayload(json.RawMessage(`   `)); err == nil {
		t.Fatalf("expected empty payload error")
	}
}
