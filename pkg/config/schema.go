package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// schema checks value types only. No key is required here: a missing key
// is reported by the accessor of the feature that needs it.
const schema = `{
  "type": "object",
  "properties": {
    "name":         {"type": "string"},
    "pass":         {"type": "string"},
    "anti-captcha": {"type": "string"},
    "ifttt":        {"type": "string"},
    "dropbox":      {"type": "string"},
    "mailgun": {
      "type": "object",
      "properties": {
        "domain": {"type": "string"},
        "api":    {"type": "string"},
        "to":     {"type": "string"}
      }
    },
    "ftp": {
      "type": "object",
      "properties": {
        "server": {"type": "string"},
        "user":   {"type": "string"},
        "pass":   {"type": "string"}
      }
    },
    "sftp": {
      "type": "object",
      "properties": {
        "server": {"type": "string"},
        "user":   {"type": "string"},
        "pass":   {"type": "string"},
        "key":    {"type": "string"}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schema)

// validate checks a decoded document against schema.
func validate(doc interface{}) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
