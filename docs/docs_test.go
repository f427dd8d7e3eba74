package docs

import (
	"encoding/json"
	"regexp"
	"testing"
)

type openAPIDoc struct {
	Paths       map[string]map[string]json.RawMessage `json:"paths"`
	Definitions map[string]json.RawMessage            `json:"definitions"`
}

func readDoc(t *testing.T) (string, openAPIDoc) {
	t.Helper()
	raw := SwaggerInfo.ReadDoc()
	var doc openAPIDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	return raw, doc
}

func TestDoc_ReferencesResolve(t *testing.T) {
	raw, doc := readDoc(t)

	refs := regexp.MustCompile(`#/definitions/([\w.]+)`).FindAllStringSubmatch(raw, -1)
	if len(refs) == 0 {
		t.Fatalf("expected schema references")
	}
	for _, m := range refs {
		if _, ok := doc.Definitions[m[1]]; !ok {
			t.Fatalf("unresolved reference %s", m[1])
		}
	}
}

func TestDoc_SecuredOperations(t *testing.T) {
	_, doc := readDoc(t)

	public := map[string]bool{
		"POST /auth/register":       true,
		"POST /auth/login":          true,
		"GET /auth/google":          true,
		"GET /auth/google/callback": true,
		"POST /payments/webhook":    true,
		"GET /health":               true,
		"GET /health/ready":         true,
	}
	methods := map[string]string{"get": "GET", "post": "POST", "put": "PUT", "delete": "DELETE"}

	for path, ops := range doc.Paths {
		for method, body := range ops {
			var op struct {
				Security []map[string][]string `json:"security"`
			}
			if err := json.Unmarshal(body, &op); err != nil {
				t.Fatalf("%s %s: %v", method, path, err)
			}
			key := methods[method] + " " + path
			if public[key] && len(op.Security) != 0 {
				t.Fatalf("%s should be public", key)
			}
			if !public[key] && len(op.Security) == 0 {
				t.Fatalf("%s should require BearerAuth", key)
			}
		}
	}
}
