package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rl1809/medstock/internal/core/domain"
	"github.com/rl1809/medstock/internal/logging"
)

var errMalformed = errors.New("malformed collection")

// decodeRecords parses a JSON array. Object elements become records with
// numbers kept as json.Number, so they are written back exactly as read.
// Any other element is carried as an opaque record.
func decodeRecords(data []byte) ([]domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var elements []json.RawMessage
	if err := dec.Decode(&elements); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.Record{}, nil
		}
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", errMalformed)
	}

	records := make([]domain.Record, 0, len(elements))
	for _, raw := range elements {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			records = append(records, domain.OpaqueRecord(trimmed))
			continue
		}

		elemDec := json.NewDecoder(bytes.NewReader(trimmed))
		elemDec.UseNumber()
		var record domain.Record
		if err := elemDec.Decode(&record); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformed, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func encodeRecords(records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return data, nil
}

// decodeOrEmpty replaces malformed content with an empty collection.
func decodeOrEmpty(ctx context.Context, logger logging.Logger, name string, data []byte) []domain.Record {
	records, err := decodeRecords(data)
	if err != nil {
		logger.Warn(ctx, "collection is not valid JSON, treating as empty", "collection", name, "error", err)
		return []domain.Record{}
	}
	return records
}
