// Package schema is the hard boundary for queue messages: every popped
// envelope is checked against the shipped v1 JSON Schema before any
// processing happens.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

//go:embed ocr_request.schema.json
var requestSchemaSource string

var requestSchema = jsonschema.MustCompileString("ocr_request.schema.json", requestSchemaSource)

// ErrInvalid marks a request envelope that violates the v1 contract. Jobs
// failing with it are never retried.
var ErrInvalid = errors.New("invalid request envelope")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// DecodeRequest validates raw against the v1 request schema plus the
// cross-field rules the schema cannot express, and decodes it into a
// JobEnvelope. ImageCount is derived from the refs when the caller omitted
// it.
func DecodeRequest(raw []byte) (*domain.JobEnvelope, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, invalid("not valid JSON: %v", err)
	}
	if err := requestSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var env domain.JobEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, invalid("decode envelope: %v", err)
	}

	if _, err := time.Parse(time.RFC3339, env.CreatedAt); err != nil {
		return nil, invalid("created_at %q is not ISO-8601", env.CreatedAt)
	}

	refs := env.Payload.ImageRefs
	if env.Payload.ImageCount == 0 {
		env.Payload.ImageCount = len(refs)
	}
	if env.Payload.ImageCount != len(refs) {
		return nil, invalid("image_count %d does not match %d image_refs", env.Payload.ImageCount, len(refs))
	}

	seen := make(map[int]struct{}, len(refs))
	for _, ref := range refs {
		if ref.Index < 0 || ref.Index >= env.Payload.ImageCount {
			return nil, invalid("image_refs index %d out of range [0,%d)", ref.Index, env.Payload.ImageCount)
		}
		if _, dup := seen[ref.Index]; dup {
			return nil, invalid("duplicate image_refs index %d", ref.Index)
		}
		seen[ref.Index] = struct{}{}
	}

	return &env, nil
}
