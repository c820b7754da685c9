// Package swagger embeds the OpenAPI document for the HTTP API.
package swagger

import _ "embed"

// Spec is the Swagger 2.0 document served at /docs/openapi.json.
//
//go:embed user.swagger.json
var Spec []byte
