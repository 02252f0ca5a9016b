// Package docs holds the OpenAPI document for the complaints API, kept in
// step with the swag annotations on the HTTP handlers and registered with
// swag so gin-swagger can serve it.
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
        "/complaints": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Creates a complaint with an optional attachment (JPEG, PNG, GIF or PDF up to 5 MiB).\nSupports idempotency via the Idempotency-Key header.",
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Submit a complaint",
                "operationId": "submitComplaint",
                "parameters": [
                    {"type": "string", "description": "Idempotency key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "JSON submission", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/handlers.SubmitComplaintRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.SubmitComplaintResponse"}},
                    "400": {"description": "Validation failed or attachment rejected", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Upload or insert failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Returns the complaint and its message thread in ascending time order.",
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Track a complaint",
                "operationId": "trackComplaint",
                "parameters": [{"type": "string", "description": "Complaint ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ComplaintView"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}/messages": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Complaints"],
                "summary": "Reply as the submitter",
                "operationId": "postComplaintMessage",
                "parameters": [
                    {"type": "string", "description": "Complaint ID", "name": "id", "in": "path", "required": true},
                    {"description": "Message", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PostMessageRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Empty or too long", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/complaints/{id}/stream": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Upgrades to a WebSocket that pushes change events for the complaint.",
                "tags": ["Complaints"],
                "summary": "Live updates for one complaint",
                "operationId": "streamComplaint",
                "parameters": [{"type": "string", "description": "Complaint ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/login": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Admin sign-in",
                "operationId": "adminLogin",
                "parameters": [{"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LoginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/logout": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Admin sign-out",
                "operationId": "adminLogout",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.RedirectResponse"}}}
            }
        },
        "/admin/session": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Current admin session",
                "operationId": "adminSession",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SessionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/complaints": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Filters by status, category, priority and date range; q ranks by relevance.\nSupports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List complaints (paginated)",
                "operationId": "listComplaints",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "string", "name": "priority", "in": "query"},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "string", "default": "desc", "name": "sort", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListComplaintsResponse"}},
                    "304": {"description": "Not Modified"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/complaints/stats": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Complaint counts per status",
                "operationId": "complaintStats",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Stats"}}}
            }
        },
        "/admin/complaints/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Complaint detail",
                "operationId": "complaintDetail",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ComplaintDetailResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Deletes the messages, then the complaint row, then the attachment.",
                "tags": ["Admin"],
                "summary": "Delete a complaint",
                "operationId": "deleteComplaint",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/complaints/{id}/status": {
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Change a complaint's status",
                "operationId": "updateComplaintStatus",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.UpdateStatusResponse"}},
                    "400": {"description": "Invalid status", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/admin/complaints/{id}/messages": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Reply as the administration",
                "operationId": "postAdminMessage",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PostMessageRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}}}
            }
        },
        "/admin/complaints/{id}/logs": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Audit trail of a complaint",
                "operationId": "listActionLogs",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ActionLogsResponse"}}}
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "validation_failed"},
                "message": {"type": "string"},
                "field": {"type": "string"},
                "redirect": {"type": "string"}
            }
        },
        "handlers.SubmitComplaintRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "category": {"type": "string", "example": "emergency"},
                "description": {"type": "string"},
                "priority": {"type": "string", "example": "urgent"},
                "contact_phone": {"type": "string"},
                "contact_email": {"type": "string"}
            }
        },
        "handlers.SubmitComplaintResponse": {
            "type": "object",
            "properties": {
                "complaint": {"$ref": "#/definitions/handlers.ComplaintView"},
                "redirect": {"type": "string", "example": "/track?id=k3j9x0a2b"}
            }
        },
        "handlers.ComplaintView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "category": {"type": "string"},
                "description": {"type": "string"},
                "priority": {"type": "string"},
                "status": {"type": "string"},
                "status_label": {"type": "string"},
                "category_label": {"type": "string"},
                "priority_label": {"type": "string"},
                "date": {"type": "string"},
                "updated_at": {"type": "string"},
                "attachment": {"type": "string"},
                "contact_phone": {"type": "string"},
                "contact_email": {"type": "string"},
                "complaint_messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}},
                "complaint_action_logs": {"type": "array", "items": {"$ref": "#/definitions/domain.ActionLogEntry"}}
            }
        },
        "domain.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "complaint_id": {"type": "string"},
                "sender": {"type": "string", "example": "user"},
                "text": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "domain.ActionLogEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "complaint_id": {"type": "string"},
                "action_type": {"type": "string"},
                "details": {"type": "string"},
                "notes": {"type": "string"},
                "timestamp": {"type": "string"},
                "sender": {"type": "string"}
            }
        },
        "handlers.PostMessageRequest": {"type": "object", "properties": {"text": {"type": "string"}}},
        "handlers.MessageResponse": {"type": "object", "properties": {"message": {"$ref": "#/definitions/domain.Message"}}},
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.LoginResponse": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "expires_at": {"type": "string"},
                "token": {"type": "string"},
                "redirect": {"type": "string", "example": "/admin/dashboard"}
            }
        },
        "handlers.RedirectResponse": {"type": "object", "properties": {"redirect": {"type": "string"}}},
        "handlers.SessionResponse": {"type": "object", "properties": {"email": {"type": "string"}, "expires_at": {"type": "string"}}},
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListComplaintsResponse": {
            "type": "object",
            "properties": {
                "complaints": {"type": "array", "items": {"$ref": "#/definitions/handlers.ComplaintView"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.NoticeView": {"type": "object", "properties": {"scope": {"type": "string"}, "message": {"type": "string"}}},
        "handlers.ComplaintDetailResponse": {
            "type": "object",
            "properties": {
                "complaint": {"$ref": "#/definitions/handlers.ComplaintView"},
                "notices": {"type": "array", "items": {"$ref": "#/definitions/handlers.NoticeView"}}
            }
        },
        "handlers.UpdateStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {"status": {"type": "string", "example": "in_progress"}, "note": {"type": "string"}}
        },
        "handlers.UpdateStatusResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "status": {"type": "string"}, "status_label": {"type": "string"}}
        },
        "handlers.ActionLogsResponse": {
            "type": "object",
            "properties": {"logs": {"type": "array", "items": {"$ref": "#/definitions/domain.ActionLogEntry"}}}
        },
        "services.Stats": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "pending": {"type": "integer"},
                "in_progress": {"type": "integer"},
                "in-progress": {"type": "integer"},
                "resolved": {"type": "integer"},
                "closed": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "apikey", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Complaints API",
	Description:      "Bilingual complaint intake: anonymous submission and tracking, and an admin dashboard.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
