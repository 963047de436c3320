package models

import (
	"encoding/json"
	"fmt"
)

// StorageObjectEvent is the payload of a Cloud Storage object notification,
// both as delivered by Eventarc inside a CloudEvent and as a bare JSON body.
type StorageObjectEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// pushEnvelope is the Pub/Sub push wrapper. Storage notifications put the
// bucket and object into message attributes; the event body is duplicated,
// base64-encoded, in the data field.
type pushEnvelope struct {
	Message *struct {
		Attributes map[string]string `json:"attributes"`
		Data       []byte            `json:"data"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// ObjectReference normalizes any of the three trigger envelope shapes
// (Pub/Sub push, Eventarc/CloudEvent body, direct storage notification) into
// one (bucket, object) pair. The core never sees the envelope.
func ObjectReference(body []byte) (bucket, object string, err error) {
	var env pushEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != nil {
		bucket = env.Message.Attributes["bucketId"]
		object = env.Message.Attributes["objectId"]
		if bucket != "" && object != "" {
			return bucket, object, nil
		}
		// Older notification configs omit the attributes; fall back to the
		// embedded event body.
		if len(env.Message.Data) > 0 {
			var evt StorageObjectEvent
			if err := json.Unmarshal(env.Message.Data, &evt); err == nil && evt.Bucket != "" && evt.Name != "" {
				return evt.Bucket, evt.Name, nil
			}
		}
		return "", "", fmt.Errorf("pubsub message is missing bucketId/objectId")
	}

	var evt StorageObjectEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return "", "", fmt.Errorf("unrecognized event payload: %w", err)
	}
	if evt.Bucket == "" || evt.Name == "" {
		return "", "", fmt.Errorf("event payload is missing bucket or name")
	}
	return evt.Bucket, evt.Name, nil
}
