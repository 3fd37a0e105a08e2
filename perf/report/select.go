package report

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Select extracts a value from an encoded document. The path is either a
// gjson path ("bottlenecks.top_bottlenecks.0.name") or a simple JSONPath
// expression ("$.bottlenecks.top_bottlenecks[0].name").
func Select(data []byte, path string) (gjson.Result, error) {
	if len(data) == 0 {
		return gjson.Result{}, fmt.Errorf("empty document")
	}
	if path == "" {
		return gjson.Result{}, fmt.Errorf("empty path")
	}

	res := gjson.GetBytes(data, toGjsonPath(path))
	if !res.Exists() {
		return gjson.Result{}, fmt.Errorf("path not found: %s", path)
	}
	return res, nil
}

// SelectString is Select rendered as text; JSON null becomes "null".
func SelectString(data []byte, path string) (string, error) {
	res, err := Select(data, path)
	if err != nil {
		return "", err
	}
	if res.Type == gjson.Null {
		return "null", nil
	}
	return res.String(), nil
}

// Select extracts a value from the document, see the package level Select.
func (d Document) Select(path string) (gjson.Result, error) {
	data, err := d.JSON(false)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to encode report: %w", err)
	}
	return Select(data, path)
}

// toGjsonPath rewrites the JSONPath subset used by the CLI into gjson
// syntax. Paths without a leading $ are returned unchanged.
func toGjsonPath(path string) string {
	if !strings.HasPrefix(path, "$") {
		return path
	}
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	r := strings.NewReplacer(`['`, ".", `']`, "", `["`, ".", `"]`, "", "[", ".", "]", "")
	path = r.Replace(path)
	return strings.TrimPrefix(path, ".")
}
