package setting

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// maxPrunePasses bounds the prune and revalidate loop. Each pass removes at
// least one location, and the schema is two levels deep.
const maxPrunePasses = 8

// Normalize turns raw file content into a Setting. Invalid or missing
// leaves take their default value, valid leaves are kept and unknown keys
// are dropped. Content that is not a JSON object yields Default. The
// returned list names the locations that were replaced.
func Normalize(data []byte) (Setting, []string, error) {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Default(), []string{"/"}, nil
	}
	root, ok := instance.(map[string]any)
	if !ok {
		return Default(), []string{"/"}, nil
	}

	var replaced []string
	for pass := 0; ; pass++ {
		leaves, err := validate(root)
		if err != nil {
			return Default(), nil, err
		}
		if leaves == nil {
			break
		}
		if pass == maxPrunePasses {
			return Default(), []string{"/"}, nil
		}
		for _, loc := range leaves {
			if len(loc) == 0 {
				return Default(), []string{"/"}, nil
			}
			prune(root, loc)
		}
		replaced = append(replaced, formatLocations(leaves))
	}

	pruned, err := json.Marshal(root)
	if err != nil {
		return Default(), nil, fmt.Errorf("re-encoding setting: %w", err)
	}
	s := Default()
	if err := json.Unmarshal(pruned, &s); err != nil {
		// Valid against the schema but not against the struct; keep defaults.
		return Default(), []string{"/"}, nil
	}
	return s, replaced, nil
}

// prune deletes the value at loc from root.
func prune(root map[string]any, loc []string) {
	node := root
	for i, key := range loc {
		if i == len(loc)-1 {
			delete(node, key)
			return
		}
		next, ok := node[key].(map[string]any)
		if !ok {
			delete(node, key)
			return
		}
		node = next
	}
}

// Check validates s against the schema.
func Check(s Setting) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return CheckJSON(data)
}

// CheckJSON validates raw JSON against the schema. Unknown keys are allowed.
func CheckJSON(data []byte) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return invalidSetting(fmt.Sprintf("setting is not valid JSON: %v", err))
	}
	if _, ok := instance.(map[string]any); !ok {
		return invalidSetting("setting must be a JSON object")
	}
	leaves, err := validate(instance)
	if err != nil {
		return err
	}
	if leaves != nil {
		return invalidSetting("invalid setting at " + formatLocations(leaves))
	}
	return nil
}
