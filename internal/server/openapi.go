//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"net/http"
)

// OpenAPISpec represents the OpenAPI v3 specification.
type OpenAPISpec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       OpenAPIInfo            `json:"info"`
	Servers    []OpenAPIServer        `json:"servers"`
	Paths      map[string]OpenAPIPath `json:"paths"`
	Components OpenAPIComponents      `json:"components"`
}

// OpenAPIInfo contains API metadata.
type OpenAPIInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// OpenAPIServer describes a server.
type OpenAPIServer struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// OpenAPIPath contains operations for a path.
type OpenAPIPath struct {
	Get    *OpenAPIOperation `json:"get,omitempty"`
	Post   *OpenAPIOperation `json:"post,omitempty"`
	Put    *OpenAPIOperation `json:"put,omitempty"`
	Delete *OpenAPIOperation `json:"delete,omitempty"`
}

// OpenAPIOperation describes an API operation.
type OpenAPIOperation struct {
	Summary     string                     `json:"summary"`
	Description string                     `json:"description,omitempty"`
	OperationID string                     `json:"operationId"`
	Tags        []string                   `json:"tags,omitempty"`
	Parameters  []OpenAPIParameter         `json:"parameters,omitempty"`
	RequestBody *OpenAPIRequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]OpenAPIResponse `json:"responses"`
}

// OpenAPIParameter describes a parameter.
type OpenAPIParameter struct {
	Name        string        `json:"name"`
	In          string        `json:"in"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required"`
	Schema      OpenAPISchema `json:"schema"`
}

// OpenAPIRequestBody describes a request body.
type OpenAPIRequestBody struct {
	Description string                      `json:"description,omitempty"`
	Required    bool                        `json:"required"`
	Content     map[string]OpenAPIMediaType `json:"content"`
}

// OpenAPIResponse describes a response.
type OpenAPIResponse struct {
	Description string                      `json:"description"`
	Content     map[string]OpenAPIMediaType `json:"content,omitempty"`
}

// OpenAPIMediaType describes a media type.
type OpenAPIMediaType struct {
	Schema OpenAPISchema `json:"schema"`
}

// OpenAPISchema describes a schema.
type OpenAPISchema struct {
	Type        string                   `json:"type,omitempty"`
	Format      string                   `json:"format,omitempty"`
	Description string                   `json:"description,omitempty"`
	Enum        []string                 `json:"enum,omitempty"`
	Properties  map[string]OpenAPISchema `json:"properties,omitempty"`
	Items       *OpenAPISchema           `json:"items,omitempty"`
	Required    []string                 `json:"required,omitempty"`
	Default     any                      `json:"default,omitempty"`
	Ref         string                   `json:"$ref,omitempty"`
}

// OpenAPIComponents contains reusable components.
type OpenAPIComponents struct {
	Schemas map[string]OpenAPISchema `json:"schemas"`
}

// handleOpenAPI handles the GET /v1/openapi.json endpoint.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	spec := BuildOpenAPISpec()
	s.respondJSON(w, http.StatusOK, spec)
}

// BuildOpenAPISpec constructs the OpenAPI v3 specification.
// This is exported so it can be used to generate static documentation.
func BuildOpenAPISpec() OpenAPISpec {
	return OpenAPISpec{
		OpenAPI: "3.0.3",
		Info: OpenAPIInfo{
			Title:       "Catena RAG Server API",
			Description: "REST API for asking questions over a pre-indexed document corpus with grounded, cited answers",
			Version:     "1.0.0",
		},
		Servers: []OpenAPIServer{
			{
				URL:         "/v1",
				Description: "API v1",
			},
		},
		Paths: map[string]OpenAPIPath{
			"/health": {
				Get: &OpenAPIOperation{
					Summary:     "Health check",
					Description: "Check server status and whether the document index is ready",
					OperationID: "getHealth",
					Tags:        []string{"System"},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "Server status, with collection statistics once the index is ready",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/HealthResponse",
									},
								},
							},
						},
					},
				},
			},
			"/ask": {
				Post: &OpenAPIOperation{
					Summary: "Ask a question",
					Description: "Answer a question from the indexed corpus. With stream=true the " +
						"response is a Server-Sent Event stream of chunk events followed by one " +
						"sources event and a done event, or a single error event on failure. " +
						"Chunks already delivered before an error remain valid.",
					OperationID: "ask",
					Tags:        []string{"Questions"},
					RequestBody: &OpenAPIRequestBody{
						Description: "Question, optional conversation history and reader profile",
						Required:    true,
						Content: map[string]OpenAPIMediaType{
							"application/json": {
								Schema: OpenAPISchema{
									Ref: "#/components/schemas/AskRequest",
								},
							},
						},
					},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "Answer with cited sources",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/AskResponse",
									},
								},
								"text/event-stream": {
									Schema: OpenAPISchema{
										Type:        "string",
										Description: "Server-Sent Events stream",
									},
								},
							},
						},
						"400": {
							Description: "Invalid request",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ErrorResponse",
									},
								},
							},
						},
						"500": {
							Description: "Server error",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ErrorResponse",
									},
								},
							},
						},
						"503": {
							Description: "Document index not ready",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ErrorResponse",
									},
								},
							},
						},
					},
				},
			},
		},
		Components: OpenAPIComponents{
			Schemas: map[string]OpenAPISchema{
				"HealthResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"status": {
							Type:        "string",
							Description: "Server status",
							Enum:        []string{"ok", "loading"},
						},
						"version": {
							Type:        "string",
							Description: "Server version",
						},
						"description": {
							Type:        "string",
							Description: "Operator-supplied engine description",
						},
						"collection": {
							Type:        "string",
							Description: "Table backing the vector index",
						},
						"passages": {
							Type:        "integer",
							Description: "Number of indexed passages",
						},
						"model": {
							Type:        "string",
							Description: "Completion model",
						},
						"embedding_model": {
							Type:        "string",
							Description: "Embedding model",
						},
					},
					Required: []string{"status", "version"},
				},
				"Message": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"role": {
							Type:        "string",
							Description: "Message role",
							Enum:        []string{"user", "assistant"},
						},
						"content": {
							Type:        "string",
							Description: "Message content",
						},
					},
					Required: []string{"role", "content"},
				},
				"Profile": {
					Type:        "object",
					Description: "Reader profile; unrecognized values fall back to defaults",
					Properties: map[string]OpenAPISchema{
						"age_register": {
							Type:        "string",
							Description: "Reader age register",
							Enum:        []string{"child", "teen", "young_adult", "adult", "senior"},
							Default:     "adult",
						},
						"knowledge_level": {
							Type:        "string",
							Description: "Reader familiarity with the subject",
							Enum:        []string{"newcomer", "familiar", "confirmed", "expert"},
							Default:     "familiar",
						},
						"response_length": {
							Type:        "string",
							Description: "Desired answer length",
							Enum:        []string{"brief", "concise", "developed"},
							Default:     "concise",
						},
					},
				},
				"AskRequest": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"question": {
							Type:        "string",
							Description: "The question to answer",
						},
						"stream": {
							Type:        "boolean",
							Description: "Enable streaming response (SSE)",
							Default:     false,
						},
						"history": {
							Type:        "array",
							Description: "Previous conversation messages, oldest first",
							Items: &OpenAPISchema{
								Ref: "#/components/schemas/Message",
							},
						},
						"profile": {
							Ref: "#/components/schemas/Profile",
						},
					},
					Required: []string{"question"},
				},
				"AskResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"answer": {
							Type:        "string",
							Description: "The generated answer",
						},
						"sources_with_scores": {
							Type:        "array",
							Description: "Source documents backing the answer, highest score first",
							Items: &OpenAPISchema{
								Ref: "#/components/schemas/SourceCitation",
							},
						},
					},
					Required: []string{"answer", "sources_with_scores"},
				},
				"SourceCitation": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"file_name": {
							Type:        "string",
							Description: "Source file name",
						},
						"file_path": {
							Type:        "string",
							Description: "Source file path as indexed",
						},
						"relative_path": {
							Type:        "string",
							Description: "Path relative to the corpus root",
						},
						"source_folder": {
							Type:        "string",
							Description: "Corpus subfolder the source came from",
						},
						"score": {
							Type:        "number",
							Format:      "double",
							Description: "Relevance score, rounded to 4 decimals",
						},
					},
					Required: []string{"file_name", "score"},
				},
				"ErrorResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"error": {
							Ref: "#/components/schemas/ErrorDetail",
						},
					},
					Required: []string{"error"},
				},
				"ErrorDetail": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"code": {
							Type:        "string",
							Description: "Error code",
						},
						"message": {
							Type:        "string",
							Description: "Error message",
						},
					},
					Required: []string{"code", "message"},
				},
			},
		},
	}
}
