// Package docs registers the OpenAPI document served under /swagger/.
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
        "/v1/elections": {
            "post": {
                "tags": ["elections"],
                "summary": "Open an election",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateElectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "replayed", "schema": {"$ref": "#/definitions/ElectionResponse"}},
                    "201": {"description": "created", "schema": {"$ref": "#/definitions/ElectionResponse"}},
                    "400": {"description": "invalid request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "idempotency conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "fewer candidates than seats", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}": {
            "get": {
                "tags": ["elections"],
                "summary": "Get an election with its ballot count",
                "parameters": [
                    {"type": "string", "name": "election_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ElectionResponse"}},
                    "404": {"description": "not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}/ballots": {
            "post": {
                "tags": ["ballots"],
                "summary": "Cast a ranked ballot",
                "parameters": [
                    {"type": "string", "name": "election_id", "in": "path", "required": true},
                    {"type": "string", "name": "X-User-Id", "in": "header", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CastBallotRequest"}}
                ],
                "responses": {
                    "200": {"description": "replayed", "schema": {"$ref": "#/definitions/BallotResponse"}},
                    "201": {"description": "cast", "schema": {"$ref": "#/definitions/BallotResponse"}},
                    "400": {"description": "invalid ballot", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "missing voter", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "closed or already voted", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "unknown candidate", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}/count": {
            "post": {
                "tags": ["results"],
                "summary": "Close the election and run the Wright STV count",
                "parameters": [
                    {"type": "string", "name": "election_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CountResultResponse"}},
                    "404": {"description": "not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/elections/{election_id}/result": {
            "get": {
                "tags": ["results"],
                "summary": "Get the stored count result",
                "parameters": [
                    {"type": "string", "name": "election_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CountResultResponse"}},
                    "404": {"description": "not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "not counted yet", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "CreateElectionRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "seats": {"type": "integer"},
                "candidates": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CandidateResponse": {
            "type": "object",
            "properties": {
                "candidate_id": {"type": "string"},
                "name": {"type": "string"},
                "position": {"type": "integer"}
            }
        },
        "ElectionResponse": {
            "type": "object",
            "properties": {
                "election_id": {"type": "string"},
                "title": {"type": "string"},
                "seats": {"type": "integer"},
                "status": {"type": "string"},
                "candidates": {"type": "array", "items": {"$ref": "#/definitions/CandidateResponse"}},
                "ballot_count": {"type": "integer"},
                "created_at": {"type": "string"},
                "counted_at": {"type": "string"},
                "replayed": {"type": "boolean"}
            }
        },
        "CastBallotRequest": {
            "type": "object",
            "properties": {
                "preferences": {"type": "array", "items": {"type": "string"}}
            }
        },
        "BallotResponse": {
            "type": "object",
            "properties": {
                "ballot_id": {"type": "string"},
                "election_id": {"type": "string"},
                "voter_id": {"type": "string"},
                "preferences": {"type": "array", "items": {"type": "string"}},
                "cast_at": {"type": "string"},
                "replayed": {"type": "boolean"}
            }
        },
        "VoteValue": {
            "type": "object",
            "properties": {
                "exact": {"type": "string"},
                "approx": {"type": "number"}
            }
        },
        "StandingItem": {
            "type": "object",
            "properties": {
                "candidate_id": {"type": "string"},
                "name": {"type": "string"},
                "votes": {"$ref": "#/definitions/VoteValue"},
                "ballots": {"type": "integer"},
                "elected": {"type": "boolean"}
            }
        },
        "TransferItem": {
            "type": "object",
            "properties": {
                "candidate_id": {"type": "string"},
                "name": {"type": "string"},
                "surplus": {"$ref": "#/definitions/VoteValue"}
            }
        },
        "RoundItem": {
            "type": "object",
            "properties": {
                "number": {"type": "integer"},
                "standings": {"type": "array", "items": {"$ref": "#/definitions/StandingItem"}},
                "transfers": {"type": "array", "items": {"$ref": "#/definitions/TransferItem"}},
                "exhausted": {"$ref": "#/definitions/VoteValue"},
                "elected": {"type": "array", "items": {"type": "string"}},
                "excluded": {"type": "string"}
            }
        },
        "WinnerItem": {
            "type": "object",
            "properties": {
                "candidate_id": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "CountResultResponse": {
            "type": "object",
            "properties": {
                "election_id": {"type": "string"},
                "seats": {"type": "integer"},
                "quota": {"type": "integer"},
                "total_ballots": {"type": "integer"},
                "tie_break": {"type": "string"},
                "filled_by_default": {"type": "boolean"},
                "winners": {"type": "array", "items": {"$ref": "#/definitions/WinnerItem"}},
                "rounds": {"type": "array", "items": {"$ref": "#/definitions/RoundItem"}},
                "counted_at": {"type": "string"},
                "replayed": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Wright STV Election API",
	Description:      "Multi-winner elections counted with the Wright system of the Single Transferable Vote.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
