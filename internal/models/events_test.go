package models

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectReferenceDirectEvent(t *testing.T) {
	body := []byte(`{"bucket":"nfe-inbox","name":"recebidas/NFE-123.xml","contentType":"text/xml"}`)
	bucket, object, err := ObjectReference(body)
	require.NoError(t, err)
	assert.Equal(t, "nfe-inbox", bucket)
	assert.Equal(t, "recebidas/NFE-123.xml", object)
}

func TestObjectReferencePushAttributes(t *testing.T) {
	body := []byte(`{
		"message": {
			"attributes": {"bucketId": "nfe-inbox", "objectId": "recebidas/NFE-123.xml", "eventType": "OBJECT_FINALIZE"},
			"data": "",
			"messageId": "42"
		},
		"subscription": "projects/p/subscriptions/s"
	}`)
	bucket, object, err := ObjectReference(body)
	require.NoError(t, err)
	assert.Equal(t, "nfe-inbox", bucket)
	assert.Equal(t, "recebidas/NFE-123.xml", object)
}

func TestObjectReferencePushDataFallback(t *testing.T) {
	inner := base64.StdEncoding.EncodeToString([]byte(`{"bucket":"nfe-inbox","name":"recebidas/NFE-9.xml"}`))
	body := []byte(fmt.Sprintf(`{"message":{"data":%q}}`, inner))
	bucket, object, err := ObjectReference(body)
	require.NoError(t, err)
	assert.Equal(t, "nfe-inbox", bucket)
	assert.Equal(t, "recebidas/NFE-9.xml", object)
}

func TestObjectReferenceRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `bucket=nfe-inbox`},
		{name: "missing name", body: `{"bucket":"nfe-inbox"}`},
		{name: "missing bucket", body: `{"name":"recebidas/NFE-1.xml"}`},
		{name: "empty message", body: `{"message":{}}`},
		{name: "attributes without object", body: `{"message":{"attributes":{"bucketId":"nfe-inbox"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ObjectReference([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
