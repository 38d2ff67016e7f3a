package http

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/graph"
)

// maxQueryBytes bounds a GraphQL request body.
const maxQueryBytes = 1 << 20

type GraphQLHandler struct {
	exec   *graph.Executor
	logger hclog.Logger
}

func NewGraphQLHandler(exec *graph.Executor, log hclog.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		exec:   exec,
		logger: log,
	}
}

// ServeHTTP handles GET and POST /graphql
//
// swagger:route POST /graphql graphql executeQuery
//
// Executes a GraphQL query or mutation. Subscriptions need the websocket
// endpoint at /graphql/ws.
//
// Responses:
//
//	200: graphqlResponse
//	400: errorResponse
//	405: errorResponse
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(r)
	if err != nil {
		h.logger.Debug("Invalid GraphQL request", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch op := graph.OperationType(req); {
	case op == ast.OperationTypeSubscription:
		writeError(w, http.StatusBadRequest, "subscriptions are only served over the websocket endpoint /graphql/ws")
		return
	case r.Method == http.MethodGet && op == ast.OperationTypeMutation:
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "mutations must be sent with POST")
		return
	}

	result := h.exec.Do(r.Context(), req)
	if len(result.Errors) > 0 {
		h.logger.Debug("GraphQL request finished with errors", "errors", len(result.Errors))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("Unable to encode GraphQL result", "error", err)
	}
}

func (h *GraphQLHandler) decode(r *http.Request) (graph.Request, error) {
	var req graph.Request

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, fmt.Errorf("variables must be a JSON object: %w", err)
			}
		}
	case http.MethodPost:
		body := io.LimitReader(r.Body, maxQueryBytes)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/graphql") {
			data, err := io.ReadAll(body)
			if err != nil {
				return req, err
			}
			req.Query = string(data)
			break
		}
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return req, fmt.Errorf("unable to decode request body: %w", err)
		}
	}

	if strings.TrimSpace(req.Query) == "" {
		return req, fmt.Errorf("must provide a query string")
	}
	return req, nil
}

// Health handles GET /health
//
// swagger:route GET /health health healthCheck
//
// Reports that the server is up.
//
// Responses:
//
//	200: healthResponse
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

var playgroundTemplate = template.Must(template.New("playground").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <title>photo-share playground</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/css/index.css" />
  <script src="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/js/middleware.js"></script>
</head>
<body>
  <div id="root"></div>
  <script>
    window.addEventListener('load', function () {
      GraphQLPlayground.init(document.getElementById('root'), {
        endpoint: {{.Endpoint}},
        subscriptionEndpoint: {{.SubscriptionEndpoint}}
      })
    })
  </script>
</body>
</html>
`))

// Playground serves GraphQL Playground pointed at endpoint.
func Playground(endpoint, subscriptionEndpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		playgroundTemplate.Execute(w, struct {
			Endpoint             string
			SubscriptionEndpoint string
		}{endpoint, subscriptionEndpoint})
	}
}

const githubAuthorizeURL = "https://github.com/login/oauth/authorize"

// GithubSignIn links to GitHub's OAuth page for the configured app. GitHub
// redirects back with the code githubAuth expects.
func GithubSignIn(clientID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if clientID == "" {
			writeError(w, http.StatusNotFound, "GitHub sign in is not configured")
			return
		}

		u := githubAuthorizeURL + "?" + url.Values{
			"client_id": {clientID},
			"scope":     {"user"},
		}.Encode()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<a href="%s">Sign In with Github</a>`, template.HTMLEscapeString(u))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Message: message})
}
