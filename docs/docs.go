package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "SmartClaim Intake API",
    "description": "Multimodal claim intake: evidence analysis, classification, department routing and SLA prediction",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/api/claims": {"post": {"summary": "Submit a claim", "tags": ["claims"], "consumes": ["multipart/form-data"]}},
    "/api/tickets": {"get": {"summary": "List tickets", "tags": ["tickets"]}},
    "/api/tickets/{id}": {"get": {"summary": "Ticket details", "tags": ["tickets"]}},
    "/api/tickets/{id}/reindex": {"post": {"summary": "Re-run index sync for a ticket", "tags": ["admin"]}},
    "/api/tickets/{id}/status": {"post": {"summary": "Move a ticket to a new status", "tags": ["admin"], "consumes": ["application/json"]}},
    "/api/departments": {"get": {"summary": "List departments", "tags": ["departments"]}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
