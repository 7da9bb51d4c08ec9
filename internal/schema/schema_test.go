package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
	"github.com/anziyang2000/hq-code-sub003/internal/models"
)

func mustDecode(t *testing.T, raw string) any {
	t.Helper()
	v, err := Decode([]byte(raw))
	require.NoError(t, err)
	return v
}

func TestValidateStructure_AcceptsCanonicalShapes(t *testing.T) {
	slot, err := ToValue(models.NewTicketInfo())
	require.NoError(t, err)
	require.NoError(t, ValidateStructure(slot, TicketInfo))

	order, err := ToValue(models.NewOrderInfo())
	require.NoError(t, err)
	require.NoError(t, ValidateStructure(order, OrderInfo))

	require.NoError(t, ValidateStructure(mustDecode(t, `{"description":"d","token_url":"u"}`), Metadata))
}

func TestValidateStructure_Rejects(t *testing.T) {
	tmpl := mustDecode(t, `{"a":"","b":0,"list":[{"x":""}],"nested":{"flag":true}}`)

	tests := []struct {
		name  string
		value string
	}{
		{"extra key", `{"a":"","b":0,"list":[],"nested":{"flag":true},"c":1}`},
		{"missing key", `{"a":"","list":[],"nested":{"flag":true}}`},
		{"number for string", `{"a":1,"b":0,"list":[],"nested":{"flag":true}}`},
		{"string for number", `{"a":"","b":"0","list":[],"nested":{"flag":true}}`},
		{"object for array", `{"a":"","b":0,"list":{},"nested":{"flag":true}}`},
		{"bad element", `{"a":"","b":0,"list":[{"x":""},{"y":""}],"nested":{"flag":true}}`},
		{"null object", `{"a":"","b":0,"list":[],"nested":null}`},
		{"nested kind", `{"a":"","b":0,"list":[],"nested":{"flag":"yes"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStructure(mustDecode(t, tt.value), tmpl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrTypeMismatch))
		})
	}

	require.NoError(t, ValidateStructure(mustDecode(t, `{"a":"x","b":7,"list":[{"x":"1"},{"x":"2"}],"nested":{"flag":false}}`), tmpl))
}

func TestValidateStructure_CheckDataTemplateOnlyAcceptsEmptyRecords(t *testing.T) {
	tmpl := TicketInfo["AdditionalInformation"].(map[string]any)["TicketCheckData"]
	require.NoError(t, ValidateStructure(mustDecode(t, `[]`), tmpl))
	require.NoError(t, ValidateStructure(mustDecode(t, `[{}]`), tmpl))
	err := ValidateStructure(mustDecode(t, `[{"ticket_number":"T1"}]`), tmpl)
	assert.True(t, errors.Is(err, domain.ErrTypeMismatch))
}

func TestNormalize_ReplacesFirstMatchAnywhere(t *testing.T) {
	tmpl := mustDecode(t, `{"a":{"status":1},"status":2,"z":{"deep":{"name":""}}}`).(map[string]any)
	patch := mustDecode(t, `{"status":9,"name":"n","extra":true}`).(map[string]any)

	got := Normalize(tmpl, patch)

	assert.Equal(t, json.Number("9"), got["a"].(map[string]any)["status"])
	assert.Equal(t, json.Number("2"), got["status"])
	assert.Equal(t, "n", got["z"].(map[string]any)["deep"].(map[string]any)["name"])
	assert.Equal(t, true, got["extra"])
	// template untouched
	assert.Equal(t, json.Number("1"), tmpl["a"].(map[string]any)["status"])
}

func TestNormalize_Idempotent(t *testing.T) {
	patches := []string{
		`{}`,
		`{"status":4}`,
		`{"status":1,"phone":"138","order_id":"O1"}`,
		`{"BuyerInfo":[{"buyerInfo_id_name":"n","id_number":"1"}],"checked_num":2}`,
	}
	for _, raw := range patches {
		t.Run(raw, func(t *testing.T) {
			patch := mustDecode(t, raw).(map[string]any)
			once := Normalize(TicketData, patch)
			twice := Normalize(TicketData, once)
			assert.Equal(t, once, twice)
			require.NoError(t, ValidateStructure(once, TicketData))
		})
	}
}

func TestStrictNormalize(t *testing.T) {
	target := mustDecode(t, `{"status":1,"info":{"name":"a","tags":["x","y"]},"list":[{"v":1}],"empty":null}`).(map[string]any)

	got, err := StrictNormalize(target, mustDecode(t, `{"status":3,"info":{"tags":["z"]},"list":[{"v":5}],"empty":{"k":1}}`).(map[string]any))
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), got["status"])
	assert.Equal(t, "a", got["info"].(map[string]any)["name"])
	assert.Equal(t, []any{"z", "y"}, got["info"].(map[string]any)["tags"])
	assert.Equal(t, json.Number("5"), got["list"].([]any)[0].(map[string]any)["v"])
	assert.Equal(t, map[string]any{"k": json.Number("1")}, got["empty"])
	// target untouched
	assert.Equal(t, json.Number("1"), target["status"])

	tests := []struct {
		name  string
		patch string
		want  error
	}{
		{"unknown key", `{"missing":1}`, domain.ErrNotFound},
		{"unknown nested key", `{"info":{"age":3}}`, domain.ErrNotFound},
		{"index past end", `{"list":[{"v":1},{"v":2}]}`, domain.ErrNotFound},
		{"kind divergence", `{"status":"3"}`, domain.ErrTypeMismatch},
		{"array for object", `{"info":["a"]}`, domain.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StrictNormalize(target, mustDecode(t, tt.patch).(map[string]any))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestDecode(t *testing.T) {
	_, err := Decode([]byte(`{"a":`))
	assert.True(t, errors.Is(err, domain.ErrParse))

	_, err = DecodeObject([]byte(`{}`), "slot")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = DecodeObject([]byte(`[1]`), "slot")
	assert.True(t, errors.Is(err, domain.ErrTypeMismatch))

	obj, err := DecodeObject([]byte(`{"n": 12345678901234567890}`), "slot")
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567890"), obj["n"])
}

func TestInto(t *testing.T) {
	var md models.Metadata
	require.NoError(t, Into(mustDecode(t, `{"description":"d","token_url":"u"}`), &md))
	assert.Equal(t, models.Metadata{Description: "d", TokenURL: "u"}, md)
}
