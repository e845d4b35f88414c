package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "NDVI Gateway API",
        "description": "Backend-for-frontend for the NDVI vegetation analysis service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Health", "description": "Liveness, readiness and metrics"},
        {"name": "Identity", "description": "Unauthenticated client user id"},
        {"name": "Analyses", "description": "NDVI analysis submissions"},
        {"name": "Gallery", "description": "Past analyses, cards and exports"},
        {"name": "Results", "description": "Artefacts of a finished session"}
    ],
    "paths": {
        "/identity": {
            "get": {
                "tags": ["Identity"],
                "summary": "Current client user id",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Identity"],
                "summary": "Replace the client user id",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetIdentityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid user id", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Identity"],
                "summary": "Forget the client user id",
                "responses": {
                    "204": {"description": "Cleared"}
                }
            }
        },
        "/analyses": {
            "post": {
                "tags": ["Analyses"],
                "summary": "Submit an NDVI analysis and wait for it",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "query", "in": "formData", "type": "string", "required": true},
                    {"name": "credentials_file", "in": "formData", "type": "file", "required": true},
                    {"name": "download_data", "in": "formData", "type": "boolean"}
                ],
                "responses": {
                    "201": {"description": "Completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Timed out, may still be completing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid submission", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Credentials file too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Backend error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Backend offline", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analyses/jobs": {
            "post": {
                "tags": ["Analyses"],
                "summary": "Queue an NDVI analysis",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "query", "in": "formData", "type": "string", "required": true},
                    {"name": "credentials_file", "in": "formData", "type": "file", "required": true},
                    {"name": "download_data", "in": "formData", "type": "boolean"}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid submission", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analyses/jobs/{id}": {
            "get": {
                "tags": ["Analyses"],
                "summary": "Poll a queued analysis",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gallery": {
            "get": {
                "tags": ["Gallery"],
                "summary": "List the caller's analyses",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK; meta.notice is set when the backend was unreachable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gallery/cards": {
            "get": {
                "tags": ["Gallery"],
                "summary": "List the caller's analyses as cards",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gallery/export": {
            "get": {
                "tags": ["Gallery"],
                "summary": "Export the caller's gallery",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Export file", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cards/{id}/{counter}": {
            "post": {
                "tags": ["Gallery"],
                "summary": "Bump a card counter",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "counter", "in": "path", "type": "string", "required": true, "enum": ["like", "share", "view"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown counter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/{id}": {
            "delete": {
                "tags": ["Results"],
                "summary": "Delete an analysis",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/{id}/urls": {
            "get": {
                "tags": ["Results"],
                "summary": "Resource URLs of a session",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/{id}/metadata": {
            "get": {
                "tags": ["Results"],
                "summary": "Session metadata document",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/{id}/download": {
            "get": {
                "tags": ["Results"],
                "summary": "Download the result bundle",
                "produces": ["application/zip"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "ZIP bundle", "schema": {"type": "file"}},
                    "404": {"description": "Unknown session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/{id}/preview/wait": {
            "get": {
                "tags": ["Results"],
                "summary": "Wait for the preview image",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "ready=false means a placeholder should be shown", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SetIdentityRequest": {
            "type": "object",
            "required": ["user_id"],
            "properties": {
                "user_id": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
