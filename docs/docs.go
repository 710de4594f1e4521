// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {"tags": ["Service"], "summary": "Service descriptor", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/health": {
            "get": {"tags": ["Service"], "summary": "Health check", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/org/create": {
            "post": {"tags": ["Organizations"], "summary": "Create an organization",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.OrganizationRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }}
        },
        "/org/get": {
            "get": {"tags": ["Organizations"], "summary": "Get an organization", "produces": ["application/json"],
                "parameters": [{"in": "query", "name": "organization_name", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }}
        },
        "/org/update": {
            "put": {"tags": ["Organizations"], "summary": "Update an organization",
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.OrganizationRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }}
        },
        "/org/delete": {
            "delete": {"tags": ["Organizations"], "summary": "Delete an organization",
                "security": [{"ApiKeyAuth": []}], "produces": ["application/json"],
                "parameters": [{"in": "query", "name": "organization_name", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }}
        },
        "/org/documents": {
            "get": {"tags": ["Documents"], "summary": "List documents in the organization's active collection",
                "security": [{"ApiKeyAuth": []}], "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "cursor", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }},
            "post": {"tags": ["Documents"], "summary": "Store a document in the organization's active collection",
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }}
        },
        "/admin/login": {
            "post": {"tags": ["Admin"], "summary": "Administrator login",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }}
        },
        "/config/concurrency": {
            "put": {"tags": ["Service"], "summary": "Update remediation worker pool concurrency",
                "security": [{"ApiKeyAuth": []}], "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/api.ConcurrencyConfig"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }}
        }
    },
    "definitions": {
        "api.OrganizationRequest": {
            "type": "object",
            "properties": {
                "organization_name": {"type": "string", "example": "Acme Corp"},
                "email": {"type": "string", "example": "admin@acme.com"},
                "password": {"type": "string", "example": "s3cretpass"}
            }
        },
        "api.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string", "example": "admin@acme.com"},
                "password": {"type": "string", "example": "s3cretpass"}
            }
        },
        "api.ConcurrencyConfig": {
            "type": "object",
            "properties": {"workers": {"type": "integer", "example": 8}}
        },
        "api.WarningView": {
            "type": "object",
            "properties": {
                "step": {"type": "string"},
                "namespace": {"type": "string"},
                "detail": {"type": "string"},
                "queued": {"type": "boolean"}
            }
        },
        "api.Envelope": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "data": {},
                "warnings": {"type": "array", "items": {"$ref": "#/definitions/api.WarningView"}}
            }
        },
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "error_code": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Tenant Registry API",
	Description:      "Organization provisioning over per-tenant PostgreSQL namespaces",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
