// Package docs carries the OpenAPI description served at /swagger/doc.json.
// Maintained by hand; rerun swag init against the handler annotations when
// routes or payloads change.
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
        "/v1/market/items": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Mint a new item",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object"}}
                }
            }
        },
        "/v1/market/items/{item_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Fetch an item by id",
                "parameters": [
                    {"type": "integer", "name": "item_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"type": "object"}}
                }
            }
        },
        "/v1/market/items/{item_id}/purchase": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Purchase a listed item",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "integer", "name": "item_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "402": {"description": "Payment Required", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"type": "object"}},
                    "409": {"description": "Conflict", "schema": {"type": "object"}},
                    "502": {"description": "Bad Gateway", "schema": {"type": "object"}}
                }
            }
        },
        "/v1/market/auctions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Open an auction for an owned item",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object"}},
                    "403": {"description": "Forbidden", "schema": {"type": "object"}},
                    "409": {"description": "Conflict", "schema": {"type": "object"}}
                }
            }
        },
        "/v1/market/auctions/{auction_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Fetch an auction by id",
                "parameters": [
                    {"type": "integer", "name": "auction_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"type": "object"}}
                }
            }
        },
        "/v1/market/auctions/{auction_id}/bids": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Place a bid on an open auction",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "integer", "name": "auction_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"type": "object"}},
                    "409": {"description": "Conflict", "schema": {"type": "object"}},
                    "410": {"description": "Gone", "schema": {"type": "object"}},
                    "502": {"description": "Bad Gateway", "schema": {"type": "object"}}
                }
            }
        },
        "/v1/market/auctions/{auction_id}/end": {
            "post": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Settle an auction past its deadline",
                "parameters": [
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "integer", "name": "auction_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"type": "object"}},
                    "409": {"description": "Conflict", "schema": {"type": "object"}},
                    "502": {"description": "Bad Gateway", "schema": {"type": "object"}}
                }
            }
        },
        "/v1/market/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["market"],
                "summary": "Ledger counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "croakmarket API",
	Description:      "Marketplace ledger for fixed-price sales and English auctions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
