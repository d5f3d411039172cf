package classifications_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerndBr/taskana/internal/classifications"
	"github.com/BerndBr/taskana/pkg/formatting"
)

func TestDecodeDefinitions(t *testing.T) {
	doc := `{
		"classifications": [{
			"classification_id": "classificationId_",
			"key": "key drelf",
			"domain": "DOMAIN_A",
			"parent_id": "CLI:100000000000000000000000000000000016",
			"parent_key": "T2000",
			"category": "MANUAL",
			"type": "TASK",
			"is_valid_in_domain": true,
			"created": "2016-05-12T10:12:12.12Z",
			"priority": 4,
			"service_level": "P2D",
			"custom_1": "custom",
			"custom_8": null
		}]
	}`

	batch, err := classifications.DecodeDefinitions([]byte(doc), formatting.FormatJSON)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	rec := batch[0]
	assert.Equal(t, "key drelf", rec.Key)
	assert.Equal(t, "T2000", rec.ParentKey)
	assert.Equal(t, 4, rec.Priority)
	require.NotNil(t, rec.IsValidInDomain)
	assert.True(t, *rec.IsValidInDomain)
	require.NotNil(t, rec.Created)
	assert.Equal(t, time.Date(2016, 5, 12, 10, 12, 12, 120000000, time.UTC), rec.Created.UTC())
	assert.Empty(t, rec.Custom8)
}

func TestDecodeDefinitionsYAML(t *testing.T) {
	doc := "classifications:\n  - key: L10000\n    domain: DOMAIN_A\n  - key: L11000\n    domain: DOMAIN_A\n    parent_key: L10000\n"

	batch, err := classifications.DecodeDefinitions([]byte(doc), formatting.FormatYAML)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "L10000", batch[1].ParentKey)
}

func TestDecodeDefinitionsRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"classifications": [`},
		{"missing classifications", `{"items": []}`},
		{"classifications not an array", `{"classifications": {}}`},
		{"priority not integer", `{"classifications": [{"key": "K", "domain": "D", "priority": "high"}]}`},
		{"priority fractional", `{"classifications": [{"key": "K", "domain": "D", "priority": 4.5}]}`},
		{"bad timestamp", `{"classifications": [{"key": "K", "domain": "D", "created": "yesterday"}]}`},
		{"valid flag not boolean", `{"classifications": [{"key": "K", "domain": "D", "is_valid_in_domain": "yes"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classifications.DecodeDefinitions([]byte(tt.doc), formatting.FormatJSON)
			assert.ErrorIs(t, err, classifications.ErrValidation)
		})
	}
}

func TestCanonicalDigestIsStable(t *testing.T) {
	batch := []classifications.Record{{Key: "B", Domain: "D", Name: "b"}, {Key: "A", Domain: "D"}}

	doc1, sum1, err := classifications.Canonical(batch)
	require.NoError(t, err)
	doc2, sum2, err := classifications.Canonical(batch)
	require.NoError(t, err)

	assert.Equal(t, doc1, doc2)
	assert.Equal(t, sum1, sum2)
	assert.Len(t, sum1, 64)
	assert.Contains(t, string(doc1), `{"domain":"D","key":"B","name":"b"}`)

	_, other, err := classifications.Canonical(batch[:1])
	require.NoError(t, err)
	assert.NotEqual(t, sum1, other)
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2026, 1, 2, 23, 0, 0, 0, time.FixedZone("X", -3*3600))
	assert.Equal(t, "2026/01/03/abc.json", classifications.ArchiveKey(at, "abc"))
}
