// Package docs registers the desk API swagger document served under /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Sign in with backend credentials",
                "security": [],
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}],
                "responses": {"200": {"description": "session token"}, "401": {"description": "UNAUTHORIZED"}}
            }
        },
        "/logout": {
            "post": {"tags": ["auth"], "summary": "Revoke the current session", "responses": {"204": {"description": "revoked"}}}
        },
        "/me": {
            "get": {"tags": ["auth"], "summary": "Current session", "responses": {"200": {"description": "session"}}}
        },
        "/books": {
            "get": {
                "tags": ["books"],
                "summary": "List books",
                "parameters": [
                    {"in": "query", "name": "genre", "type": "string"},
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {"200": {"description": "page of books"}, "502": {"description": "UPSTREAM_UNAVAILABLE"}}
            },
            "post": {
                "tags": ["books"],
                "summary": "Add a book to the catalog",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/domain.Book"}}],
                "responses": {"201": {"description": "created", "schema": {"$ref": "#/definitions/domain.Book"}}, "400": {"description": "INVALID_ARGUMENT"}}
            }
        },
        "/books/genres": {
            "get": {"tags": ["books"], "summary": "Distinct genres, \"All Genres\" first", "responses": {"200": {"description": "genres"}}}
        },
        "/books/refresh": {
            "post": {"tags": ["books"], "summary": "Reload the catalog snapshot", "responses": {"204": {"description": "reloaded"}}}
        },
        "/books/{book_id}": {
            "put": {
                "tags": ["books"],
                "summary": "Update a book",
                "parameters": [{"in": "path", "name": "book_id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "updated", "schema": {"$ref": "#/definitions/domain.Book"}}, "404": {"description": "NOT_FOUND"}}
            }
        },
        "/books/{book_id}/display": {
            "get": {
                "tags": ["books"],
                "summary": "Book name and author, with fallbacks",
                "parameters": [{"in": "path", "name": "book_id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "display"}}
            }
        },
        "/members": {
            "get": {
                "tags": ["members"],
                "summary": "List members",
                "parameters": [{"in": "query", "name": "search", "type": "string"}, {"in": "query", "name": "page", "type": "integer"}],
                "responses": {"200": {"description": "page of members"}}
            },
            "post": {"tags": ["members"], "summary": "Add a member with a generated password", "responses": {"201": {"description": "created"}, "400": {"description": "INVALID_ARGUMENT"}}}
        },
        "/members/refresh": {
            "post": {"tags": ["members"], "summary": "Reload the member snapshot", "responses": {"204": {"description": "reloaded"}}}
        },
        "/members/{member_id}": {
            "put": {
                "tags": ["members"],
                "summary": "Update a member",
                "parameters": [{"in": "path", "name": "member_id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "updated"}, "404": {"description": "NOT_FOUND"}}
            },
            "delete": {
                "tags": ["members"],
                "summary": "Delete a member",
                "parameters": [{"in": "path", "name": "member_id", "type": "integer", "required": true}],
                "responses": {"204": {"description": "deleted"}, "404": {"description": "NOT_FOUND"}}
            }
        },
        "/borrowings": {
            "get": {
                "tags": ["borrowings"],
                "summary": "List borrowings",
                "parameters": [{"in": "query", "name": "search", "type": "string"}, {"in": "query", "name": "page", "type": "integer"}],
                "responses": {"200": {"description": "page of borrowings"}}
            }
        },
        "/borrowings/refresh": {
            "post": {"tags": ["borrowings"], "summary": "Reload the borrowing list", "responses": {"204": {"description": "reloaded"}}}
        },
        "/borrowings/recent": {
            "get": {"tags": ["borrowings"], "summary": "Borrowed within the last 7 days", "responses": {"200": {"description": "page of borrowings"}}}
        },
        "/borrowings/overdue": {
            "get": {"tags": ["borrowings"], "summary": "Overdue borrowings with fines", "responses": {"200": {"description": "page of borrowings"}}}
        },
        "/borrowings/issue": {
            "get": {"tags": ["borrowings"], "summary": "Issue form state of this session", "responses": {"200": {"description": "form state"}}},
            "post": {
                "tags": ["borrowings"],
                "summary": "Issue a book to a member",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/borrowing.IssueRequest"}}],
                "responses": {
                    "201": {"description": "issued"},
                    "400": {"description": "INVALID_ARGUMENT"},
                    "409": {"description": "ISSUE_IN_PROGRESS"},
                    "502": {"description": "UPSTREAM_UNAVAILABLE or PARTIAL_FAILURE"}
                }
            },
            "delete": {"tags": ["borrowings"], "summary": "Reset the issue form", "responses": {"204": {"description": "reset"}}}
        },
        "/borrowings/{borrowing_id}/return": {
            "post": {
                "tags": ["borrowings"],
                "summary": "Mark a borrowing returned today",
                "parameters": [{"in": "path", "name": "borrowing_id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "returned"}, "404": {"description": "NOT_FOUND"}, "412": {"description": "PRECONDITION_FAILED"}}
            }
        },
        "/reconciliations": {
            "get": {
                "tags": ["reconciliations"],
                "summary": "Journal of failed issues",
                "parameters": [{"in": "query", "name": "status", "type": "string", "enum": ["compensated", "unresolved", "resolved"]}],
                "responses": {"200": {"description": "page of entries"}}
            }
        },
        "/reconciliations/{id}/resolve": {
            "post": {
                "tags": ["reconciliations"],
                "summary": "Close a journal entry",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "resolved"}, "404": {"description": "NOT_FOUND"}, "409": {"description": "CONFLICT"}}
            }
        },
        "/dashboard": {
            "get": {"tags": ["dashboard"], "summary": "Dashboard counters and previews", "responses": {"200": {"description": "summary"}}}
        }
    },
    "definitions": {
        "auth.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "borrowing.IssueRequest": {
            "type": "object",
            "required": ["bookId", "memberId", "issueDate"],
            "properties": {
                "bookId": {"type": "integer"},
                "memberId": {"type": "integer"},
                "issueDate": {"type": "string", "example": "2025-01-01"},
                "dueDate": {"type": "string", "example": "2025-01-15"}
            }
        },
        "domain.Book": {
            "type": "object",
            "properties": {
                "bookId": {"type": "integer"},
                "bookName": {"type": "string"},
                "author": {"type": "string"},
                "isbn": {"type": "string"},
                "category": {"type": "string"},
                "genre": {"type": "string"},
                "quantity": {"type": "integer"},
                "availabilityStatus": {"type": "string", "enum": ["Available", "Borrowed", "Reserved", "Maintenance"]},
                "imageUrl": {"type": "string"},
                "publisher": {"type": "string"},
                "language": {"type": "string"},
                "description": {"type": "string"},
                "dateOfPublication": {"type": "string"},
                "ratings": {"type": "number"}
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
	Title:            "libdesk API",
	Description:      "Librarian desk: catalog, members, borrowing ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
