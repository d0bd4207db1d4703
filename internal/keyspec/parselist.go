package keyspec

import (
	"fmt"
	"strings"
)

// ParseList normalizes a list-valued key-file field. YAML authors write
// these either as native lists or as a single delimited string; commas,
// tabs, quote characters and repeated spaces all act as separators.
func ParseList(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return compact(v), nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list entry: want a string, got %T", item)
			}
			items = append(items, s)
		}
		return compact(items), nil
	case string:
		return splitDelimited(v), nil
	default:
		return nil, fmt.Errorf("want a list or delimited string, got %T", value)
	}
}

func splitDelimited(s string) []string {
	replacer := strings.NewReplacer("'", " ", `"`, " ", ",", " ", "\t", " ")
	return strings.Fields(replacer.Replace(s))
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
