package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const openAPIVersion = "3.0.3"

// OpenAPIGenerator describes the prescription API as an OpenAPI 3.0 document.
type OpenAPIGenerator struct {
	version  string
	basePath string
}

func NewOpenAPIGenerator(version, basePath string) *OpenAPIGenerator {
	if version == "" {
		version = "dev"
	}
	return &OpenAPIGenerator{version: version, basePath: basePath}
}

// GenerateSpec produces the document as a map ready for JSON encoding.
func (g *OpenAPIGenerator) GenerateSpec() map[string]any {
	idParam := pathParam("id", "Prescription identifier", "integer", "int64")
	tags := []string{"Prescription"}

	paths := map[string]any{
		"/post": map[string]any{
			"post": map[string]any{
				"summary":     "Create a new prescription",
				"description": "Saves a new prescription in the system. A missing date defaults to today.",
				"operationId": "createPrescription",
				"tags":        tags,
				"requestBody": requestBody("PrescriptionRequest"),
				"responses": map[string]any{
					"201": jsonResponse("Created", "Prescription"),
					"400": jsonResponse("Malformed body", "Error"),
					"424": jsonResponse("Attachment not found in blob storage", "Error"),
					"500": jsonResponse("Validation or storage failure", "Error"),
				},
			},
		},
		"/": map[string]any{
			"get": map[string]any{
				"summary":     "List all prescriptions",
				"operationId": "listPrescriptions",
				"tags":        tags,
				"responses": map[string]any{
					"200": jsonArrayResponse("All prescriptions ordered by id", "Prescription"),
					"204": map[string]any{"description": "No prescriptions stored"},
					"500": jsonResponse("Storage failure", "Error"),
				},
			},
		},
		"/{id}": map[string]any{
			"get": map[string]any{
				"summary":     "Get prescription by ID",
				"operationId": "getPrescription",
				"tags":        tags,
				"parameters":  []any{idParam},
				"responses": map[string]any{
					"200": jsonResponse("Found", "Prescription"),
					"400": jsonResponse("Invalid id", "Error"),
					"404": jsonResponse("Not found", "Error"),
					"500": jsonResponse("Storage failure", "Error"),
				},
			},
			"put": map[string]any{
				"summary":     "Update an existing prescription",
				"description": "Replaces every client-controlled field. A missing date keeps the stored one.",
				"operationId": "updatePrescription",
				"tags":        tags,
				"parameters":  []any{idParam},
				"requestBody": requestBody("PrescriptionRequest"),
				"responses": map[string]any{
					"200": jsonResponse("Updated", "Prescription"),
					"400": jsonResponse("Invalid id or body", "Error"),
					"404": jsonResponse("Not found", "Error"),
					"424": jsonResponse("Attachment not found in blob storage", "Error"),
					"500": jsonResponse("Validation or storage failure", "Error"),
				},
			},
			"delete": map[string]any{
				"summary":     "Delete prescription by ID",
				"operationId": "deletePrescription",
				"tags":        tags,
				"parameters":  []any{idParam},
				"responses": map[string]any{
					"200": jsonResponse("Deleted", "Message"),
					"400": jsonResponse("Invalid id", "Error"),
					"404": jsonResponse("Not found", "Error"),
					"500": jsonResponse("Storage failure", "Error"),
				},
			},
		},
		"/{id}/detail": map[string]any{
			"get": map[string]any{
				"summary":     "Get prescription with its doctor, slot and patient",
				"operationId": "getPrescriptionDetail",
				"tags":        tags,
				"parameters":  []any{idParam},
				"responses": map[string]any{
					"200": jsonResponse("Found", "PrescriptionDetail"),
					"400": jsonResponse("Invalid id", "Error"),
					"404": jsonResponse("Not found", "Error"),
					"500": jsonResponse("Dangling reference or storage failure", "Error"),
				},
			},
		},
		"/user/{userId}/date/{date}": map[string]any{
			"get": map[string]any{
				"summary":     "Get prescriptions by user ID and date",
				"operationId": "listPrescriptionsByUserAndDate",
				"tags":        tags,
				"parameters": []any{
					pathParam("userId", "Issuing doctor", "integer", "int64"),
					pathParam("date", "Issue date, YYYY-MM-DD", "string", "date"),
				},
				"responses": map[string]any{
					"200": jsonArrayResponse("Matching prescriptions ordered by id", "Prescription"),
					"204": map[string]any{"description": "No prescriptions for the user on that date"},
					"400": jsonResponse("Invalid user id, date or lookup failure", "Error"),
				},
			},
		},
	}

	return map[string]any{
		"openapi": openAPIVersion,
		"info": map[string]any{
			"title":       "Prescription creation and management API",
			"description": "APIs for creating and managing prescriptions",
			"version":     g.version,
		},
		"servers": []map[string]string{
			{"url": g.basePath},
		},
		"tags": []map[string]string{
			{"name": "Prescription", "description": "APIs for managing prescriptions"},
		},
		"paths": paths,
		"components": map[string]any{
			"schemas": componentSchemas(),
		},
	}
}

func (g *OpenAPIGenerator) RegisterRoutes(rg *gin.RouterGroup) {
	spec := g.GenerateSpec()
	rg.GET("/openapi.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, spec)
	})
}

func pathParam(name, description, typ, format string) map[string]any {
	return map[string]any{
		"name":        name,
		"in":          "path",
		"required":    true,
		"description": description,
		"schema":      map[string]string{"type": typ, "format": format},
	}
}

func schemaRef(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

func requestBody(schema string) map[string]any {
	return map[string]any{
		"required": true,
		"content": map[string]any{
			"application/json": map[string]any{"schema": schemaRef(schema)},
		},
	}
}

func jsonResponse(description, schema string) map[string]any {
	return map[string]any{
		"description": description,
		"content": map[string]any{
			"application/json": map[string]any{"schema": schemaRef(schema)},
		},
	}
}

func jsonArrayResponse(description, schema string) map[string]any {
	return map[string]any{
		"description": description,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"type": "array", "items": schemaRef(schema)},
			},
		},
	}
}

func field(typ, description string, example any) map[string]any {
	f := map[string]any{"type": typ, "description": description}
	if example != nil {
		f["example"] = example
	}
	return f
}

func stringList(description string, example []string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]string{"type": "string"},
		"example":     example,
	}
}

func prescriptionFields() map[string]any {
	return map[string]any{
		"fever":          field("number", "Recorded fever temperature", 101.5),
		"weight":         field("number", "Weight of the patient", 75.0),
		"bp":             field("string", "Blood pressure reading as text", "120/80"),
		"sugar":          field("number", "Sugar level in blood", 110.0),
		"date":           map[string]any{"type": "string", "format": "date", "description": "Date of prescription", "example": "2024-09-17"},
		"tests":          stringList("Medical tests prescribed, in order", []string{"CBC", "X-Ray"}),
		"medicines":      stringList("Medicines prescribed, in order", []string{"Paracetamol"}),
		"history":        stringList("Patient's medical history notes, in order", []string{"Allergic to penicillin"}),
		"attachment_key": field("string", "Object key of a scanned copy in blob storage", nil),
		"user_id":        field("integer", "Doctor who issued the prescription", 1),
		"slot_id":        field("integer", "Slot during which the prescription was issued", 1),
		"patient_id":     field("integer", "Patient to whom the prescription belongs", 1),
	}
}

func componentSchemas() map[string]any {
	response := prescriptionFields()
	response["id"] = field("integer", "Unique identifier for the prescription", 101)
	response["created_at"] = map[string]any{"type": "string", "format": "date-time"}
	response["updated_at"] = map[string]any{"type": "string", "format": "date-time"}

	return map[string]any{
		"PrescriptionRequest": map[string]any{
			"type":        "object",
			"description": "Create and update body. Any id is ignored.",
			"required":    []string{"user_id", "slot_id", "patient_id"},
			"properties":  prescriptionFields(),
		},
		"Prescription": map[string]any{
			"type":        "object",
			"description": "A prescription issued to a patient",
			"properties":  response,
		},
		"PrescriptionDetail": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prescription":   schemaRef("Prescription"),
				"user":           map[string]string{"type": "object"},
				"slot":           map[string]string{"type": "object"},
				"patient":        map[string]string{"type": "object"},
				"attachment_url": field("string", "Short-lived download link for the attachment", nil),
			},
		},
		"Error": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timestamp": map[string]any{"type": "string", "format": "date-time"},
				"status":    field("integer", "HTTP status code", 404),
				"error":     field("string", "HTTP reason phrase", "Not Found"),
				"message":   field("string", "Human readable message", "prescription not found with id 7"),
			},
		},
		"Message": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": field("string", "Outcome", "Prescription deleted successfully."),
			},
		},
	}
}
