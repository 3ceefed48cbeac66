// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/cv/upload": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["cv"],
                "summary": "Upload a CV",
                "parameters": [
                    {"type": "file", "description": "CV in PDF format", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "502": {"description": "Bad Gateway", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/cv/upload/batch": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["cv"],
                "summary": "Upload several CVs",
                "parameters": [
                    {"type": "file", "description": "CV files in PDF format", "name": "files", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BatchUploadResponse"}}
                }
            }
        },
        "/search/semantic": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Semantic candidate search",
                "parameters": [
                    {"description": "Query and filters", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.SemanticSearchRequest"}},
                    {"type": "integer", "default": 10, "description": "Page size (1-100)", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Page offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Candidate"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/search/filter": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Structured candidate filter",
                "parameters": [
                    {"description": "Filters", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/models.FilterRequest"}},
                    {"type": "integer", "default": 10, "description": "Page size (1-100)", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Page offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Candidate"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/search/filter/export": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["search"],
                "summary": "Export filtered candidates",
                "parameters": [
                    {"description": "Filters", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/models.FilterRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}}
                }
            }
        },
        "/search/skills": {
            "get": {
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "List skills",
                "parameters": [
                    {"type": "integer", "default": 100, "description": "Maximum number of names (1-1000)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}}
                }
            }
        },
        "/search/locations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "List locations",
                "parameters": [
                    {"type": "integer", "default": 100, "description": "Maximum number of locations (1-1000)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}}
                }
            }
        },
        "/candidates": {
            "get": {
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "List candidates",
                "parameters": [
                    {"type": "integer", "default": 10, "description": "Page size (1-100)", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Page offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Candidate"}}}
                }
            }
        },
        "/candidates/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "Get a candidate",
                "parameters": [
                    {"type": "integer", "description": "Candidate ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Candidate"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "Replace a candidate's data",
                "parameters": [
                    {"type": "integer", "description": "Candidate ID", "name": "id", "in": "path", "required": true},
                    {"description": "Candidate data", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CandidateInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Candidate"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            },
            "delete": {
                "tags": ["candidates"],
                "summary": "Delete a candidate",
                "parameters": [
                    {"type": "integer", "description": "Candidate ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/candidates/{id}/similar": {
            "get": {
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "Find similar candidates",
                "parameters": [
                    {"type": "integer", "description": "Candidate ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 10, "description": "Number of results (1-100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "models.FilterRequest": {
            "type": "object",
            "properties": {
                "education_level": {"type": "string"},
                "location": {"type": "string"},
                "min_experience_years": {"type": "number"},
                "skills": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.SemanticSearchRequest": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "education_level": {"type": "string"},
                "location": {"type": "string"},
                "min_experience_years": {"type": "number"},
                "required_skills": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.Candidate": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "location": {"type": "string"}
            }
        },
        "models.CandidateInput": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "location": {"type": "string"},
                "skills": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.UploadResponse": {
            "type": "object",
            "properties": {
                "document_id": {"type": "string"},
                "filename": {"type": "string"},
                "original_name": {"type": "string"},
                "replaced": {"type": "boolean"},
                "candidate": {"$ref": "#/definitions/models.Candidate"}
            }
        },
        "models.BatchUploadResponse": {
            "type": "object",
            "properties": {
                "successful_uploads": {"type": "array", "items": {"$ref": "#/definitions/models.UploadResponse"}},
                "failed_uploads": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "filename": {"type": "string"},
                            "error": {"type": "string"}
                        }
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "CV Analyser API",
	Description:      "CV ingestion and candidate search backed by PostgreSQL and pgvector.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
