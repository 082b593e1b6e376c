// Package docs registers the OpenAPI description served at /swagger.
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
        "/v1/orders": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Customers only see their own orders.",
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List orders",
                "parameters": [
                    {"type": "string", "description": "Filter by status", "name": "status", "in": "query"},
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (default 20, max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.listOrdersResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Totals and subtotals are computed server-side. Staff are notified with order:new.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Place an order",
                "parameters": [
                    {"type": "string", "description": "Replays return the originally committed order", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Order submission", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createOrderRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/orders/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Get an order with its line items",
                "parameters": [{"type": "integer", "description": "Order id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/orders/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Either field may be omitted. The owner and staff are notified with order:update.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Transition an order",
                "parameters": [
                    {"type": "integer", "description": "Order id", "name": "id", "in": "path", "required": true},
                    {"description": "Proposed status and/or payment status", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateOrderStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Order"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/catalog/items": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "List menu items",
                "parameters": [{"type": "integer", "description": "Only items of this category", "name": "category_id", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.listItemsResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Broadcast to staff and customers as catalog:add.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Add a menu item",
                "parameters": [{"description": "Menu item", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.menuItemRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.MenuItem"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/catalog/items/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Broadcast to staff and customers as catalog:update.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Replace a menu item",
                "parameters": [
                    {"type": "integer", "description": "Menu item id", "name": "id", "in": "path", "required": true},
                    {"description": "Menu item", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.menuItemRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.MenuItem"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Broadcast to staff and customers as catalog:delete.",
                "tags": ["catalog"],
                "summary": "Remove a menu item",
                "parameters": [{"type": "integer", "description": "Menu item id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/catalog/categories": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "List categories",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.listCategoriesResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Add a category",
                "parameters": [{"description": "Category", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.categoryRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Category"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/catalog/categories/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["catalog"],
                "summary": "Replace a category",
                "parameters": [
                    {"type": "integer", "description": "Category id", "name": "id", "in": "path", "required": true},
                    {"description": "Category", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.categoryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Category"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/realtime/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["realtime"],
                "summary": "Live connection counts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/realtime.Stats"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/v1/ws": {
            "get": {
                "description": "The credential is checked before the upgrade; a rejected credential never gets a socket.",
                "tags": ["realtime"],
                "summary": "Open the realtime notification stream",
                "parameters": [
                    {"type": "string", "description": "Bearer token", "name": "Authorization", "in": "header"},
                    {"type": "string", "description": "Token, for clients that cannot set headers", "name": "token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.LineItem": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "order_id": {"type": "integer"},
                "item_id": {"type": "integer"},
                "quantity": {"type": "integer"},
                "unit_price": {"type": "number"},
                "subtotal": {"type": "number"}
            }
        },
        "domain.Order": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "subject_id": {"type": "integer"},
                "order_number": {"type": "string"},
                "total_amount": {"type": "number"},
                "status": {"type": "string", "enum": ["pending", "confirmed", "preparing", "ready", "completed", "cancelled"]},
                "payment_status": {"type": "string", "enum": ["pending", "paid", "refunded"]},
                "payment_method": {"type": "string"},
                "fulfillment": {"type": "string", "enum": ["immediate", "scheduled"]},
                "scheduled_for": {"type": "string"},
                "note": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.LineItem"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.MenuItem": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "category_id": {"type": "integer"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "price": {"type": "number"},
                "image_url": {"type": "string"},
                "available": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Category": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "sort_order": {"type": "integer"},
                "active": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "error": {"type": "string"},
                "detail": {"type": "string"}
            }
        },
        "handler.orderLineRequest": {
            "type": "object",
            "properties": {
                "item_id": {"type": "integer"},
                "quantity": {"type": "integer", "minimum": 1, "maximum": 10000},
                "price": {"type": "number", "minimum": 0, "maximum": 100000000000}
            }
        },
        "handler.createOrderRequest": {
            "type": "object",
            "required": ["items", "payment_method"],
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/handler.orderLineRequest"}},
                "payment_method": {"type": "string"},
                "note": {"type": "string"},
                "fulfillment": {"type": "string", "enum": ["immediate", "scheduled"]},
                "scheduled_for": {"type": "string"}
            }
        },
        "handler.updateOrderStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["pending", "confirmed", "preparing", "ready", "completed", "cancelled"]},
                "payment_status": {"type": "string", "enum": ["pending", "paid", "refunded"]}
            }
        },
        "handler.paginationResponse": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handler.listOrdersResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/domain.Order"}},
                "pagination": {"$ref": "#/definitions/handler.paginationResponse"}
            }
        },
        "handler.menuItemRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "category_id": {"type": "integer"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "price": {"type": "number"},
                "image_url": {"type": "string"},
                "available": {"type": "boolean"}
            }
        },
        "handler.categoryRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "sort_order": {"type": "integer"},
                "active": {"type": "boolean"}
            }
        },
        "handler.listItemsResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.MenuItem"}}}
        },
        "handler.listCategoriesResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.Category"}}}
        },
        "realtime.Stats": {
            "type": "object",
            "properties": {
                "connections": {"type": "integer"},
                "channels": {"type": "object", "additionalProperties": {"type": "integer"}}
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
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Order-ahead sync engine API",
	Description:      "Orders, catalog and the realtime notification stream.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
