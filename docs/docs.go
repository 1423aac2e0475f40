// Package docs registers the OpenAPI description served under /swagger/.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
		"/events": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "Create an event",
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.CreateEventRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				]
			}
		},
		"/events/{eventID}": {
			"patch": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "Update event fields",
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.UpdateEventRequest"
						}
					},
					{
						"type": "string",
						"description": "Event ID",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				]
			},
			"delete": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "Cancel or delete an event",
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "eventID",
						"in": "path",
						"required": true
					},
					{
						"type": "boolean",
						"description": "Hard delete (default false)",
						"name": "hard",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/events/{eventID}/rsvp": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "RSVP to an event",
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.RSVPRequest"
						}
					},
					{
						"type": "string",
						"description": "Event ID",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				]
			},
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "Get the caller's RSVP state",
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/events/{eventID}/share": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"events"
				],
				"summary": "Share an event with friends",
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.ShareEventRequest"
						}
					},
					{
						"type": "string",
						"description": "Event ID",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				]
			}
		},
		"/feed": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"feed"
				],
				"summary": "List the caller's feed",
				"parameters": [
					{
						"type": "integer",
						"description": "Max events (default 50, max 100)",
						"name": "limit",
						"in": "query"
					},
					{
						"type": "string",
						"description": "public or invite-only",
						"name": "visibility",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Earliest start (RFC 3339)",
						"name": "from",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Latest start (RFC 3339)",
						"name": "to",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Cursor (RFC 3339)",
						"name": "before",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/friends": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"friends"
				],
				"summary": "List friends and pending invites",
				"parameters": [
					{
						"type": "boolean",
						"description": "Include pending invites (default true)",
						"name": "include_invites",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/friends/requests": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"friends"
				],
				"summary": "Send a friend request",
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.FriendRequestRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				]
			}
		},
		"/friends/requests/{inviteID}/respond": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"friends"
				],
				"summary": "Accept or decline a friend request",
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.RespondFriendRequestRequest"
						}
					},
					{
						"type": "string",
						"description": "Invite ID",
						"name": "inviteID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				]
			}
		},
		"/friends/invites": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"friends"
				],
				"summary": "Invite a contact",
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.InviteFriendRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				]
			}
		},
		"/chats": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"chats"
				],
				"summary": "List the caller's chats",
				"parameters": [],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/chats/{chatID}/messages": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"chats"
				],
				"summary": "Read chat messages",
				"parameters": [
					{
						"type": "string",
						"description": "Chat ID (the event ID)",
						"name": "chatID",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"description": "Max messages (default 50, max 200)",
						"name": "limit",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Cursor (RFC 3339)",
						"name": "before",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"chats"
				],
				"summary": "Send a chat message",
				"parameters": [
					{
						"description": "Request body",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/controllers.SendMessageRequest"
						}
					},
					{
						"type": "string",
						"description": "Chat ID (the event ID)",
						"name": "chatID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"403": {
						"description": "error.code: forbidden",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				]
			}
		},
		"/health": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"health"
				],
				"summary": "Health check",
				"parameters": [],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"400": {
						"description": "error.code: bad_request",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"404": {
						"description": "error.code: not_found",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"409": {
						"description": "error.code: already_exists",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"412": {
						"description": "error.code: failed_precondition",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					},
					"500": {
						"description": "error.code: internal_error",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"helpers.APIError": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"helpers.APIResponse": {
			"type": "object",
			"properties": {
				"data": {},
				"error": {
					"$ref": "#/definitions/helpers.APIError"
				}
			}
		},
		"domain.GeoPoint": {
			"type": "object",
			"properties": {
				"lat": {
					"type": "number"
				},
				"lng": {
					"type": "number"
				}
			}
		},
		"controllers.CreateEventRequest": {
			"type": "object",
			"properties": {
				"title": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"starts_at": {
					"type": "string",
					"format": "date-time"
				},
				"ends_at": {
					"type": "string",
					"format": "date-time"
				},
				"location": {
					"type": "string"
				},
				"geo": {
					"$ref": "#/definitions/domain.GeoPoint"
				},
				"visibility": {
					"type": "string",
					"enum": [
						"public",
						"invite-only"
					]
				},
				"guest_cap": {
					"type": "integer"
				},
				"cover_image_ref": {
					"type": "string"
				}
			},
			"required": [
				"title",
				"starts_at",
				"ends_at",
				"location",
				"visibility"
			]
		},
		"controllers.UpdateEventRequest": {
			"type": "object",
			"properties": {
				"title": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"starts_at": {
					"type": "string",
					"format": "date-time"
				},
				"ends_at": {
					"type": "string",
					"format": "date-time"
				},
				"location": {
					"type": "string"
				},
				"geo": {
					"$ref": "#/definitions/domain.GeoPoint"
				},
				"visibility": {
					"type": "string",
					"enum": [
						"public",
						"invite-only"
					]
				},
				"guest_cap": {
					"type": "integer"
				},
				"cover_image_ref": {
					"type": "string"
				},
				"invited_user_ids": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"controllers.RSVPRequest": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string",
					"enum": [
						"going",
						"interested",
						"declined"
					]
				},
				"arrival_time": {
					"type": "string",
					"format": "date-time"
				},
				"id_variants": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			},
			"required": [
				"status"
			]
		},
		"controllers.ShareEventRequest": {
			"type": "object",
			"properties": {
				"recipient_ids": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			},
			"required": [
				"recipient_ids"
			]
		},
		"controllers.FriendRequestRequest": {
			"type": "object",
			"properties": {
				"recipient_id": {
					"type": "string"
				}
			},
			"required": [
				"recipient_id"
			]
		},
		"controllers.RespondFriendRequestRequest": {
			"type": "object",
			"properties": {
				"accept": {
					"type": "boolean"
				}
			},
			"required": [
				"accept"
			]
		},
		"controllers.InviteFriendRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"phone": {
					"type": "string"
				}
			}
		},
		"controllers.SendMessageRequest": {
			"type": "object",
			"properties": {
				"text": {
					"type": "string"
				}
			},
			"required": [
				"text"
			]
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
	Title:            "StepOut API",
	Description:      "Events, feed, RSVPs, friends and event chats.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
