package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray is a string list column. It is written as a JSON text value on
// every driver and read back from JSON or from a PostgreSQL array literal.
type StringArray []string

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("StringArray: unsupported scan type %T", value)
	}

	switch {
	case strings.HasPrefix(s, "["):
		return json.Unmarshal([]byte(s), a)
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		*a = splitPostgresArray(s[1 : len(s)-1])
	default:
		*a = StringArray{s}
	}
	return nil
}

// splitPostgresArray splits the body of a "{a,\"b, c\"}" literal.
func splitPostgresArray(body string) StringArray {
	items := StringArray{}
	if body == "" {
		return items
	}

	var (
		item     strings.Builder
		quoted   bool
		escaping bool
	)
	for _, r := range body {
		switch {
		case escaping:
			item.WriteRune(r)
			escaping = false
		case r == '\\':
			escaping = true
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			items = append(items, item.String())
			item.Reset()
		default:
			item.WriteRune(r)
		}
	}
	return append(items, item.String())
}

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType implements schema.GormDataTypeInterface.
func (StringArray) GormDataType() string {
	return "text"
}
