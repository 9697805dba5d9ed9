package common

import (
	"fmt"
	"strings"
)

// StringList reads a tool argument given either as a comma-separated string
// or as an array of strings. Blank entries are dropped. A missing argument
// yields nil.
func StringList(param any, paramName string) ([]string, error) {
	var raw []string
	switch v := param.(type) {
	case nil:
		return nil, nil
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
