// Package docs holds the Swagger description served under /swagger. It mirrors
// the handler annotations; regenerate with
// `swag init -g cmd/billing_backend/main.go -o cmd/docs` after changing them.
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
        "/billing-rules": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["billing-rules"],
                "summary": "List billing rules",
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Token of the next page", "name": "nextToken", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ListBillingRulesResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Creates a recurring billing rule and schedules its first run",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["billing-rules"],
                "summary": "Create a billing rule",
                "parameters": [
                    {"description": "Rule details", "name": "rule", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateBillingRuleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.BillingRule"}},
                    "400": {"description": "Invalid input or parameters", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/billing-rules/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["billing-rules"],
                "summary": "Get a billing rule",
                "parameters": [{"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.BillingRule"}},
                    "404": {"description": "Billing rule not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Changes schedule, parameters or activation; the next run is recomputed when the schedule changes",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["billing-rules"],
                "summary": "Update a billing rule",
                "parameters": [
                    {"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "rule", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateBillingRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.BillingRule"}},
                    "400": {"description": "Invalid input or parameters", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Billing rule not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/billing-rules/{id}/execute": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Runs the rule immediately. dryRun previews without writing; forceRun bypasses the per-period guard.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["billing-rules"],
                "summary": "Execute a billing rule now",
                "parameters": [
                    {"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true},
                    {"description": "Execution switches", "name": "options", "in": "body", "schema": {"$ref": "#/definitions/dto.ExecuteBillingRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ExecutionResult"}},
                    "404": {"description": "Billing rule not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Already executed for the current period", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/billing-rules/{id}/executions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["billing-rules"],
                "summary": "List executions of a billing rule",
                "parameters": [
                    {"type": "string", "description": "Rule ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 20, "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "string", "description": "Token of the next page", "name": "nextToken", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ListExecutionsResponse"}},
                    "404": {"description": "Billing rule not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/distributions": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Splits the total among the fund's active shareholders and stores a DRAFT distribution",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["distributions"],
                "summary": "Create a distribution",
                "parameters": [
                    {"description": "Distribution details", "name": "distribution", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateDistributionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Distribution"}},
                    "400": {"description": "Invalid input or no active shareholders", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Fund not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/distributions/preview": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["distributions"],
                "summary": "Preview a distribution",
                "parameters": [
                    {"description": "Distribution details", "name": "distribution", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateDistributionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Distribution"}}
                }
            }
        },
        "/distributions/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["distributions"],
                "summary": "Get a distribution",
                "parameters": [{"type": "string", "description": "Distribution ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Distribution"}},
                    "404": {"description": "Distribution not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["distributions"],
                "summary": "Delete a draft distribution",
                "parameters": [{"type": "string", "description": "Distribution ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Executed distributions cannot be deleted", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/distributions/{id}/execute": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Issues one credit note per shareholder and marks the distribution EXECUTED",
                "produces": ["application/json"],
                "tags": ["distributions"],
                "summary": "Execute a distribution",
                "parameters": [{"type": "string", "description": "Distribution ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ExecuteDistributionResponse"}},
                    "409": {"description": "Distribution already executed", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/funds/{fundId}/distributions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["distributions"],
                "summary": "List the distributions of a fund",
                "parameters": [{"type": "string", "description": "Fund ID", "name": "fundId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Distribution"}}}
                }
            }
        },
        "/lease-settlements": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Creates an OPEN settlement for the period, or updates the inputs of an OPEN/CALCULATED one with the same period",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["lease-settlements"],
                "summary": "Create or merge a lease revenue settlement",
                "parameters": [
                    {"description": "Settlement period and inputs", "name": "settlement", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateSettlementRequest"}}
                ],
                "responses": {
                    "200": {"description": "Merged into existing settlement", "schema": {"$ref": "#/definitions/domain.LeaseRevenueSettlement"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.LeaseRevenueSettlement"}},
                    "409": {"description": "Period already settled or closed", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/lease-settlements/import": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Stores an externally computed settlement as CLOSED without recalculation",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["lease-settlements"],
                "summary": "Import a historical settlement",
                "parameters": [
                    {"description": "Historical settlement", "name": "settlement", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ImportHistoricalSettlementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.LeaseRevenueSettlement"}},
                    "409": {"description": "A settlement for the period already exists", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/lease-settlements/preview": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["lease-settlements"],
                "summary": "Preview a lease revenue settlement",
                "parameters": [
                    {"description": "Settlement period and inputs", "name": "settlement", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateSettlementRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LeaseRevenueSettlement"}}
                }
            }
        },
        "/lease-settlements/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["lease-settlements"],
                "summary": "Get a lease revenue settlement",
                "parameters": [{"type": "string", "description": "Settlement ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LeaseRevenueSettlement"}},
                    "404": {"description": "Settlement not found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/lease-settlements/{id}/calculate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["lease-settlements"],
                "summary": "Calculate a lease revenue settlement",
                "parameters": [{"type": "string", "description": "Settlement ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LeaseRevenueSettlement"}},
                    "409": {"description": "Settlement is already settled or closed", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/lease-settlements/{id}/settle": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["lease-settlements"],
                "summary": "Settle a lease revenue settlement",
                "parameters": [{"type": "string", "description": "Settlement ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SettleSettlementResponse"}},
                    "409": {"description": "Settlement is not calculated", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/lease-settlements/{id}/close": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["lease-settlements"],
                "summary": "Close a lease revenue settlement",
                "parameters": [{"type": "string", "description": "Settlement ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LeaseRevenueSettlement"}},
                    "409": {"description": "Settlement is not settled", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.BillingRule": {"type": "object"},
        "domain.Distribution": {"type": "object"},
        "domain.ExecutionResult": {"type": "object"},
        "domain.LeaseRevenueSettlement": {"type": "object"},
        "dto.CreateBillingRuleRequest": {"type": "object", "required": ["frequency", "name", "ruleType"]},
        "dto.CreateDistributionRequest": {"type": "object", "required": ["distributionDate", "fundId"]},
        "dto.CreateSettlementRequest": {"type": "object", "required": ["parkId", "periodType", "year"]},
        "dto.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "dto.ExecuteBillingRuleRequest": {"type": "object", "properties": {"dryRun": {"type": "boolean"}, "forceRun": {"type": "boolean"}}},
        "dto.ExecuteDistributionResponse": {"type": "object"},
        "dto.ImportHistoricalSettlementRequest": {"type": "object", "required": ["parkId", "periodType", "year"]},
        "dto.ListBillingRulesResponse": {"type": "object"},
        "dto.ListExecutionsResponse": {"type": "object"},
        "dto.SettleSettlementResponse": {"type": "object"},
        "dto.UpdateBillingRuleRequest": {"type": "object"}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Wind Park Billing API",
	Description:      "Recurring billing, distributions and lease revenue settlements for wind park operators.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
