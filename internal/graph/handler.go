package graph

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/parser"
	"github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"go.uber.org/zap"
)

// maxBodyBytes bounds a request document plus variables.
const maxBodyBytes = 1 << 20

// Request is a GraphQL request body.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

type responseError struct {
	Message string        `json:"message"`
	Code    string        `json:"code"`
	Path    []interface{} `json:"path,omitempty"`
}

// Response is what the handler writes. Errors are flattened to
// {message, code, path}.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []responseError `json:"errors,omitempty"`
}

// Handler executes GraphQL requests over HTTP. Queries may be sent with GET
// (?query=&operationName=&variables=) or POST with a JSON body; mutations
// only with POST.
type Handler struct {
	schema  *graphql.Schema
	logger  *zap.SugaredLogger
	metrics *Metrics
}

func NewHandler(schema *graphql.Schema, logger *zap.SugaredLogger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{schema: schema, logger: logger, metrics: metrics}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				h.writeJSON(w, http.StatusBadRequest, badRequest("variables must be a JSON object"))
				return
			}
		}
	case http.MethodPost:
		body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			h.logger.Debugw("invalid graphql payload", "err", err)
			msg := "invalid request body"
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				msg = "request body too large"
			} else if errors.Is(err, io.EOF) {
				msg = "empty request body"
			}
			h.writeJSON(w, http.StatusBadRequest, badRequest(msg))
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		h.writeJSON(w, http.StatusMethodNotAllowed, badRequest("method not allowed"))
		return
	}
	if req.Query == "" {
		h.writeJSON(w, http.StatusBadRequest, badRequest("query is required"))
		return
	}
	if r.Method == http.MethodGet {
		op, err := selectedOperation(req)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, badRequest(err.Error()))
			return
		}
		if op != nil && op.Operation != ast.Query {
			w.Header().Set("Allow", "POST")
			h.writeJSON(w, http.StatusMethodNotAllowed, badRequest(string(op.Operation)+" operations must use POST"))
			return
		}
	}

	start := time.Now()
	res := h.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)
	out := Response{Data: res.Data, Errors: flatten(res.Errors)}
	h.metrics.observe(time.Since(start).Seconds(), out.Errors)
	if len(out.Data) == 0 {
		out.Data = json.RawMessage("null")
	}
	h.writeJSON(w, http.StatusOK, out)
}

// selectedOperation parses req.Query and returns the operation it would run.
// It returns nil when no single operation is selected; execution reports
// that case.
func selectedOperation(req Request) (*ast.OperationDefinition, error) {
	doc, gqlErr := parser.ParseQuery(&ast.Source{Input: req.Query})
	if gqlErr != nil {
		return nil, gqlErr
	}
	if req.OperationName == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0], nil
		}
		return nil, nil
	}
	return doc.Operations.ForName(req.OperationName), nil
}

func badRequest(msg string) Response {
	return Response{Data: json.RawMessage("null"), Errors: []responseError{{Message: msg, Code: CodeBadUserInput}}}
}

// flatten converts graphql-go errors. Errors raised by resolvers carry a
// code extension; parse and validation errors have none and are reported
// as BAD_USER_INPUT.
func flatten(errs []*gqlerrors.QueryError) []responseError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]responseError, 0, len(errs))
	for _, e := range errs {
		code := CodeBadUserInput
		if c, ok := e.Extensions["code"].(string); ok {
			code = c
		} else if e.ResolverError != nil {
			code = CodeInternal
		}
		out = append(out, responseError{Message: e.Message, Code: code, Path: e.Path})
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warnw("write response failed", "err", err)
	}
}
