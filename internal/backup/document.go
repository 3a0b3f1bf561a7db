// Package backup exports the whole database to a JSON file and restores
// it again. Files carry a format version and the identity of the app that
// wrote them; imports from another app are rejected.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nhle/labeltasks/internal/apperr"
	"github.com/nhle/labeltasks/internal/store"
)

// FormatVersion is written into every exported file.
const FormatVersion = "1.0"

// Document is the on-disk backup format.
type Document struct {
	Version    string           `json:"version"`
	AppName    string           `json:"appName"`
	ExportDate string           `json:"exportDate"`
	Labels     []store.LabelRow `json:"labels"`
	Tasks      []store.TaskRow  `json:"tasks"`
}

var (
	labelFields = []string{"id", "title", "color", "createdAt"}
	taskFields  = []string{"id", "labelId", "text", "createdAt"}
)

// Decode parses and validates a backup file written by appName.
// Unparseable input fails with ErrInvalidFormat; input that parses but
// does not have the expected shape or identity, or whose timestamps
// cannot be read, fails with ErrIncompatibleFile. Rows are returned
// normalized: omitted date and updatedAt take the createdAt value.
func Decode(data []byte, appName string) (*Document, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("backup is not valid JSON: %w", apperr.ErrInvalidFormat)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, incompatible("backup is not a JSON object")
	}

	doc := &Document{}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"version", &doc.Version},
		{"appName", &doc.AppName},
		{"exportDate", &doc.ExportDate},
	} {
		v, err := requiredString(top, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	if doc.AppName != appName {
		return nil, incompatible(fmt.Sprintf("backup was written by %q, not %q", doc.AppName, appName))
	}

	if err := decodeRows(top, "labels", labelFields, &doc.Labels); err != nil {
		return nil, err
	}
	if err := decodeRows(top, "tasks", taskFields, &doc.Tasks); err != nil {
		return nil, err
	}

	// Every row must read back once stored.
	for i := range doc.Labels {
		if err := doc.Labels[i].Normalize(); err != nil {
			return nil, incompatible(fmt.Sprintf("labels[%d]: %v", i, err))
		}
	}
	for i := range doc.Tasks {
		if err := doc.Tasks[i].Normalize(); err != nil {
			return nil, incompatible(fmt.Sprintf("tasks[%d]: %v", i, err))
		}
	}

	return doc, nil
}

// requiredString returns a non-empty string member of obj.
func requiredString(obj map[string]json.RawMessage, key string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return "", incompatible(fmt.Sprintf("missing %q", key))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
		return "", incompatible(fmt.Sprintf("%q must be a non-empty string", key))
	}
	return s, nil
}

// decodeRows checks that obj[key] is an array whose elements carry the
// mandatory fields, then decodes it into dst.
func decodeRows(obj map[string]json.RawMessage, key string, fields []string, dst interface{}) error {
	raw, ok := obj[key]
	if !ok {
		return incompatible(fmt.Sprintf("missing %q", key))
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return incompatible(fmt.Sprintf("%q must be an array", key))
	}

	var elems []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return incompatible(fmt.Sprintf("%q must contain objects", key))
	}
	for i, e := range elems {
		for _, f := range fields {
			v, ok := e[f]
			if !ok || string(bytes.TrimSpace(v)) == "null" {
				return incompatible(fmt.Sprintf("%s[%d] is missing %q", key, i, f))
			}
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding %s: %v: %w", key, err, apperr.ErrIncompatibleFile)
	}
	return nil
}

func incompatible(msg string) error {
	return fmt.Errorf("%s: %w", msg, apperr.ErrIncompatibleFile)
}
