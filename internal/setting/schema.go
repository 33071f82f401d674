package setting

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://beequen.local/schema/setting.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing setting schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("adding setting schema: %w", err)
	}
	return c.Compile(schemaURL)
})

// Schema returns the embedded JSON Schema document.
func Schema() []byte {
	return schemaJSON
}

// validate checks a decoded JSON instance. It returns the instance locations
// of the innermost failures, or nil when the instance is valid.
func validate(instance any) ([][]string, error) {
	sch, err := compileSchema()
	if err != nil {
		return nil, err
	}
	err = sch.Validate(instance)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}
	var leaves [][]string
	collectLeaves(verr, &leaves)
	return leaves, nil
}

func collectLeaves(verr *jsonschema.ValidationError, out *[][]string) {
	if len(verr.Causes) == 0 {
		*out = append(*out, verr.InstanceLocation)
		return
	}
	for _, c := range verr.Causes {
		collectLeaves(c, out)
	}
}

// formatLocations renders failing locations as JSON pointers, sorted.
func formatLocations(leaves [][]string) string {
	ptrs := make([]string, 0, len(leaves))
	seen := make(map[string]bool, len(leaves))
	for _, loc := range leaves {
		p := "/" + strings.Join(loc, "/")
		if !seen[p] {
			seen[p] = true
			ptrs = append(ptrs, p)
		}
	}
	sort.Strings(ptrs)
	return strings.Join(ptrs, ", ")
}
