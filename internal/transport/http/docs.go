// Package http of Photo Share API
//
// # Documentation for Photo Share API
//
// Most of the API is GraphQL at /graphql; these routes cover the rest.
//
// Schemes: http
// BasePath: /
// Version: 1.0.0
//
// Consumes:
// - application/json
//
// Produces:
// - application/json
//
// swagger:meta
package http

import (
	_ "embed"
	"net/http"

	"github.com/go-openapi/runtime/middleware"
)

//go:embed swagger.yaml
var swaggerSpec []byte

// ErrorResponse defines the structure for API error responses
//
// swagger:model
type ErrorResponse struct {
	// The error message
	//
	// required: true
	Message string `json:"message"`
}

// ImageResponse is returned after an image upload
//
// swagger:model
type ImageResponse struct {
	// Where the image is served from
	//
	// required: true
	URL string `json:"url"`
}

// Generic error message returned as a string
// swagger:response errorResponse
type errorResponseWrapper struct {
	// Description of the error
	// in: body
	Body ErrorResponse
}

// swagger:response imageResponse
type imageResponseWrapper struct {
	// in: body
	Body ImageResponse
}

// swagger:parameters uploadImage
type photoIDParamsWrapper struct {
	// The ID of the photo
	// in: path
	// required: true
	ID string `json:"id"`
}

func serveSwagger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(swaggerSpec)
}

func docsHandler() http.Handler {
	opts := middleware.RedocOpts{SpecURL: "/swagger.yaml", Title: "Photo Share API"}
	return middleware.Redoc(opts, nil)
}
