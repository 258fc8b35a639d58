package images

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Operation is one RFC 6902 patch operation on a top-level image property.
type Operation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// Diff returns the operations turning src into des. Properties are compared
// after a JSON round trip so that, for example, int 1 equals float64 1.
// The image API patches whole properties, so nested values are replaced
// rather than diffed.
func Diff(src, des map[string]interface{}) ([]Operation, error) {
	from, err := jsonObject(src)
	if err != nil {
		return nil, err
	}

	to, err := jsonObject(des)
	if err != nil {
		return nil, err
	}

	var ops []Operation

	for _, key := range sortedKeys(to) {
		value := to[key]

		old, exists := from[key]

		switch {
		case !exists:
			ops = append(ops, Operation{Op: "add", Path: pointer(key), Value: value})
		case !reflect.DeepEqual(old, value):
			ops = append(ops, Operation{Op: "replace", Path: pointer(key), Value: value})
		}
	}

	for _, key := range sortedKeys(from) {
		if _, kept := to[key]; !kept {
			ops = append(ops, Operation{Op: "remove", Path: pointer(key)})
		}
	}

	return ops, nil
}

func jsonObject(value map[string]interface{}) (map[string]interface{}, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding patch source: %w", err)
	}

	var decoded map[string]interface{}

	err = json.Unmarshal(encoded, &decoded)
	if err != nil {
		return nil, fmt.Errorf("decoding patch source: %w", err)
	}

	if decoded == nil {
		decoded = map[string]interface{}{}
	}

	return decoded, nil
}

// pointer escapes key as a single-segment JSON pointer.
func pointer(key string) string {
	return "/" + strings.NewReplacer("~", "~0", "/", "~1").Replace(key)
}

func sortedKeys(value map[string]interface{}) []string {
	keys := make([]string, 0, len(value))
	for key := range value {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
