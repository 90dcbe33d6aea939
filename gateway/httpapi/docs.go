package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/endpoint"
)

// OpenAPIDocument projects the exposed endpoint descriptors into an OpenAPI
// 3.0 document. Unexposed endpoints never appear, so the document is safe to
// hand to external clients. Shared between the live /openapi.json handler and
// the schema-exporter tool, which writes the same document to disk.
func OpenAPIDocument(endpoints *endpoint.Registry, flow component.FlowMeta) map[string]any {
	paths := map[string]any{}
	for _, desc := range endpoints.ListExposed() {
		operations := map[string]any{}
		methods := append([]string(nil), desc.Methods...)
		sort.Strings(methods)
		for _, method := range methods {
			op := map[string]any{
				"summary": desc.Summary,
				"responses": map[string]any{
					"200": map[string]any{
						"description": "Processed envelope with header status",
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/Envelope"},
							},
						},
					},
				},
			}
			if len(desc.Tags) > 0 {
				op["tags"] = desc.Tags
			}
			if !strings.EqualFold(method, http.MethodGet) {
				op["requestBody"] = map[string]any{
					"required": false,
					"content": map[string]any{
						"application/json": map[string]any{
							"schema": map[string]any{"$ref": "#/components/schemas/Envelope"},
						},
					},
				}
			}
			operations[strings.ToLower(method)] = op
		}
		paths[desc.Name] = operations
	}

	title := "flow gateway"
	if flow.Name != "" {
		title = flow.Name
	}
	version := flow.Version
	if version == "" {
		version = "0.0.0"
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       title,
			"version":     version,
			"description": "Envelope-based endpoints served by the flow gateway",
		},
		"paths": paths,
		"components": map[string]any{
			"schemas": map[string]any{
				"Envelope": envelopeSchema(),
			},
		},
	}
}

// envelopeSchema describes the canonical request/response envelope.
func envelopeSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"header"},
		"properties": map[string]any{
			"header": map[string]any{
				"type":     "object",
				"required": []string{"requestId", "execEndpoint"},
				"properties": map[string]any{
					"requestId":      map[string]any{"type": "string"},
					"execEndpoint":   map[string]any{"type": "string"},
					"targetExecutor": map[string]any{"type": "string"},
					"status":         statusSchema(),
				},
			},
			"parameters": map[string]any{
				"type":                 "object",
				"additionalProperties": true,
			},
			"routes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"executor":  map[string]any{"type": "string"},
						"startTime": map[string]any{"type": "string", "format": "date-time"},
						"endTime":   map[string]any{"type": "string", "format": "date-time"},
						"status":    statusSchema(),
					},
				},
			},
			"data": map[string]any{
				"type":  "array",
				"items": map[string]any{},
			},
		},
	}
}

// statusSchema describes the outcome block carried by headers and routes.
func statusSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":        map[string]any{"type": "string", "enum": []string{"success", "error"}},
			"description": map[string]any{"type": "string"},
			"exception": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string"},
					"executor": map[string]any{"type": "string"},
				},
			},
		},
	}
}

func (g *Gateway) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	data, err := json.Marshal(OpenAPIDocument(g.endpoints, g.flow))
	if err != nil {
		g.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// docsPage embeds swagger-ui from the CDN pointed at the local document.
const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Gateway API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/openapi.json",
      dom_id: "#swagger-ui"
    });
  </script>
</body>
</html>
`

func (g *Gateway) handleDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(docsPage))
}
