// Package docs contains the generated OpenAPI definition served by the
// Swagger UI route. Regenerate with:
//
//	swag init -g cmd/server/main.go -o docs
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
        "/chat": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["text/plain"],
                "tags": ["Chat"],
                "summary": "Ask a question about federal regulations",
                "operationId": "chat",
                "responses": {
                    "200": {"description": "Streamed answer text", "schema": {"type": "string"}},
                    "400": {"description": "Empty or malformed message", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Daily quota exhausted", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Pipeline failure", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Quota accounting unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/usage": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Usage"],
                "summary": "Get today's quota state",
                "operationId": "usage",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.UsageState"}},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/contact": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Contact"],
                "summary": "Submit the contact form",
                "operationId": "contact",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.ContactResponse"}},
                    "400": {"description": "Missing field or invalid email", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/regulations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Regulations"],
                "summary": "List indexed regulations",
                "operationId": "listRegulations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListRegulationsResponse"}}
                }
            }
        },
        "/auth/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Create an account",
                "operationId": "signUp",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SessionResponse"}},
                    "400": {"description": "Invalid payload or provider rejection", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Provider unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/signin": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Sign in with email and password",
                "operationId": "signIn",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SessionResponse"}},
                    "400": {"description": "Invalid payload or credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "502": {"description": "Provider unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/magic-link": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["Auth"],
                "summary": "Send a passwordless sign-in link",
                "operationId": "magicLink",
                "responses": {
                    "204": {"description": "Link sent if the account exists"},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/signout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the current session",
                "operationId": "signOut",
                "responses": {
                    "204": {"description": "Session revoked"},
                    "401": {"description": "Missing token", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/users/{id}/tier": {
            "put": {
                "consumes": ["application/json"],
                "tags": ["Admin"],
                "summary": "Set a user's subscription tier",
                "operationId": "updateTier",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "Tier updated"},
                    "400": {"description": "Invalid user id or tier", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Bad or missing service key", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Profile not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "quota_exceeded"},
                "message": {"type": "string", "example": "daily query limit reached"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.ContactResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string", "example": "new"}
            }
        },
        "handlers.SessionResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string", "example": "bearer"},
                "expires_in": {"type": "integer", "example": 3600},
                "refresh_token": {"type": "string"}
            }
        },
        "handlers.ListRegulationsResponse": {
            "type": "object",
            "properties": {
                "regulations": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/handlers.Regulation"}
                }
            }
        },
        "handlers.Regulation": {
            "type": "object",
            "properties": {
                "regulation": {"type": "string", "example": "far"},
                "display_name": {"type": "string", "example": "Far"},
                "chunks": {"type": "integer", "example": 1424}
            }
        },
        "services.UsageState": {
            "type": "object",
            "properties": {
                "tier": {"type": "string", "example": "free"},
                "used": {"type": "integer", "example": 12},
                "limit": {"type": "integer", "example": 25},
                "remaining": {"type": "integer", "example": 13},
                "allowed": {"type": "boolean", "example": true},
                "degraded": {"type": "boolean", "example": false}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Regulation Q&A API",
	Description:      "Retrieval-augmented question answering over federal regulations, with per-tier daily usage limits.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
