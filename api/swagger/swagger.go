package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "HostelHaven Allocation API",
        "description": "Room allocation engine for the HostelHaven hostel management system",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Rooms", "description": "Room catalog management"},
        {"name": "Requests", "description": "Allocation request queue"},
        {"name": "Allocations", "description": "Room assignments"},
        {"name": "Waitlist", "description": "Overflow queue"},
        {"name": "Batches", "description": "Batch allocation runs"},
        {"name": "Audit", "description": "Consistency auditing"}
    ],
    "paths": {
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms",
                "parameters": [
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "floor", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "maintenance", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rooms"],
                "summary": "Register a room",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRoomRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate room number"}
                }
            }
        },
        "/rooms/{id}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Get room detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Rooms"],
                "summary": "Update room attributes",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Capacity below current occupancy"}
                }
            },
            "delete": {
                "tags": ["Rooms"],
                "summary": "Delete an empty room",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Room still has residents"}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List allocation requests",
                "parameters": [
                    {"name": "resident_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Submit an allocation request",
                "parameters": [
                    {"name": "resident_id", "in": "query", "type": "string", "description": "Staff only: file on behalf of a resident"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created and allocated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Created and waitlisted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Resident already has an open request or active allocation"}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get request detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/requests/{id}/cancel": {
            "post": {
                "tags": ["Requests"],
                "summary": "Cancel a pending or waitlisted request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request already terminal or allocated"}
                }
            }
        },
        "/allocations": {
            "post": {
                "tags": ["Allocations"],
                "summary": "Attempt allocation for a request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AllocateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Allocated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "No capacity; request waitlisted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocations/{id}": {
            "get": {
                "tags": ["Allocations"],
                "summary": "Get allocation detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/allocations/{id}/deallocate": {
            "post": {
                "tags": ["Allocations"],
                "summary": "End an active allocation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/DeallocateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Ended", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found or not active"}
                }
            }
        },
        "/allocations/{id}/transfer": {
            "post": {
                "tags": ["Allocations"],
                "summary": "Move a resident to another room",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransferRequest"}}
                ],
                "responses": {
                    "200": {"description": "Transferred", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Target room full or under maintenance"}
                }
            }
        },
        "/residents/{id}/allocation": {
            "get": {
                "tags": ["Allocations"],
                "summary": "Get a resident's active allocation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active allocation"}
                }
            }
        },
        "/waitlist": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "View the ordered waitlist",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waitlist/reprocess": {
            "post": {
                "tags": ["Waitlist"],
                "summary": "Reprocess the waitlist against current vacancies",
                "parameters": [
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "floor", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batches": {
            "post": {
                "tags": ["Batches"],
                "summary": "Run a batch allocation over all pending requests",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RunBatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "Report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batches/{id}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Get batch run detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/batches/{id}/export": {
            "get": {
                "tags": ["Batches"],
                "summary": "Export a batch report as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "produces": ["application/octet-stream"],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/audit": {
            "post": {
                "tags": ["Audit"],
                "summary": "Run a consistency audit pass",
                "responses": {
                    "200": {"description": "Report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateRoomRequest": {
            "type": "object",
            "properties": {
                "room_number": {"type": "string"},
                "floor": {"type": "integer"},
                "type": {"type": "string", "enum": ["STANDARD", "DELUXE", "PREMIUM", "SUITE"]},
                "capacity": {"type": "integer"},
                "price": {"type": "number"},
                "amenities": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["room_number", "type", "capacity"]
        },
        "RoomPatch": {
            "type": "object",
            "properties": {
                "floor": {"type": "integer"},
                "type": {"type": "string"},
                "capacity": {"type": "integer"},
                "maintenance": {"type": "boolean"},
                "price": {"type": "number"},
                "amenities": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SubmitRequest": {
            "type": "object",
            "properties": {
                "preferred_type": {"type": "string"},
                "preferred_floor": {"type": "integer"},
                "special_requirements": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "AllocateRequest": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "room_id": {"type": "string"}
            },
            "required": ["request_id"]
        },
        "DeallocateRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "TransferRequest": {
            "type": "object",
            "properties": {
                "room_id": {"type": "string"}
            },
            "required": ["room_id"]
        },
        "RunBatchRequest": {
            "type": "object",
            "properties": {
                "label": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
