// Package docs registers the OpenAPI description of the user management API
// with swag. Regenerate with `swag init -g cmd/usermgmt/main.go`.
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
        "/users": {
            "get": {"tags": ["users"], "summary": "List all users", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/user"}}}}},
            "post": {"tags": ["users"], "summary": "Create a manager or a client", "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/createUser"}}],
                "responses": {"204": {"description": "No Content"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}}}}
        },
        "/users/search": {
            "get": {"tags": ["users"], "summary": "Search users by first name, last name or email", "produces": ["application/json"],
                "parameters": [{"in": "query", "name": "searchTerm", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/user"}}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}}}}
        },
        "/users/managers": {
            "get": {"tags": ["users"], "summary": "List managers", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/user"}}}}}
        },
        "/users/clients": {
            "get": {"tags": ["users"], "summary": "List clients", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/user"}}}}}
        },
        "/users/managers-with-clients": {
            "get": {"tags": ["relationships"], "summary": "List managers with their assigned clients", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/users/clients-with-managers": {
            "get": {"tags": ["relationships"], "summary": "List clients with their manager", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/users/manager/{username}/clients": {
            "get": {"tags": ["relationships"], "summary": "List the clients of the manager with the given user name", "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "username", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/users/{id}": {
            "get": {"tags": ["users"], "summary": "Get a user by id", "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/user"}}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/error"}}}},
            "put": {"tags": ["users"], "summary": "Update the shared fields of a user", "consumes": ["application/json"],
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}, {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/updateUser"}}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/error"}}}},
            "delete": {"tags": ["users"], "summary": "Delete a user",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/error"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/error"}}}}
        },
        "/users/{id}/relationships": {
            "get": {"tags": ["relationships"], "summary": "List the relationships a user takes part in", "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/relationship"}}}}}
        },
        "/users/assign-manager": {
            "post": {"tags": ["relationships"], "summary": "Assign a manager to a client without one", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/assignManager"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "boolean"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/error"}}}}
        },
        "/users/reassign-client-manager": {
            "put": {"tags": ["relationships"], "summary": "Move an assigned client to another manager", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/reassignManager"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "boolean"}}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/error"}}}}
        }
    },
    "definitions": {
        "error": {"type": "object", "properties": {"error": {"type": "string"}}},
        "user": {"type": "object", "properties": {
            "userId": {"type": "integer"}, "userName": {"type": "string"}, "email": {"type": "string"}, "alias": {"type": "string"},
            "firstName": {"type": "string"}, "lastName": {"type": "string"}, "userType": {"type": "string"},
            "position": {"type": "string"}, "level": {"type": "integer"}}},
        "createUser": {"type": "object", "properties": {
            "userName": {"type": "string"}, "email": {"type": "string"}, "alias": {"type": "string"},
            "firstName": {"type": "string"}, "lastName": {"type": "string"},
            "userType": {"type": "string", "enum": ["Manager", "Client"]},
            "position": {"type": "string"}, "level": {"type": "integer"}}},
        "updateUser": {"type": "object", "properties": {
            "userName": {"type": "string"}, "email": {"type": "string"}, "alias": {"type": "string"},
            "firstName": {"type": "string"}, "lastName": {"type": "string"}}},
        "relationship": {"type": "object", "properties": {
            "userRelationshipId": {"type": "integer"}, "clientId": {"type": "integer"}, "managerId": {"type": "integer"}}},
        "assignManager": {"type": "object", "required": ["clientId", "managerId"], "properties": {
            "clientId": {"type": "integer"}, "managerId": {"type": "integer"}}},
        "reassignManager": {"type": "object", "required": ["clientId", "newManagerId"], "properties": {
            "clientId": {"type": "integer"}, "newManagerId": {"type": "integer"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "User Management API",
	Description:      "Users specialised as managers or clients, with manager assignment.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
