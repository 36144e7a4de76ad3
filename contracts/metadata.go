package contracts

import "fmt"

// ParamKind identifies where a bound argument is placed on the request
type ParamKind string

const (
	ParamPath   ParamKind = "path"
	ParamQuery  ParamKind = "query"
	ParamHeader ParamKind = "header"
	ParamBody   ParamKind = "body"
)

// ParamBinding binds one positional argument of a service method
type ParamBinding struct {
	Kind ParamKind `json:"kind"`
	Name string    `json:"name,omitempty"`
}

// String renders the binding the way it is written in a params tag
func (p ParamBinding) String() string {
	if p.Name == "" {
		return string(p.Kind)
	}
	return fmt.Sprintf("%s:%s", p.Kind, p.Name)
}

// MethodMetadata is the request template for one service method.
// Values are produced by the metadata package and must not be mutated.
type MethodMetadata struct {
	// Name is the Go field name of the service method
	Name string `json:"name"`
	// Verb is the HTTP method, upper case
	Verb string `json:"verb"`
	// Path is the URL path template with {name} placeholders
	Path string `json:"path"`
	// Params binds call arguments in order, excluding a leading context
	Params []ParamBinding `json:"params,omitempty"`
	// Headers are static headers sent with every call
	Headers map[string]string `json:"headers,omitempty"`
	// HasContext is set when the first argument is a context.Context
	HasContext bool `json:"hasContext"`
}

// Route returns "VERB /path" for logging
func (m *MethodMetadata) Route() string {
	if m == nil {
		return ""
	}
	return m.Verb + " " + m.Path
}

// BodyIndex returns the argument index bound to the body, or -1
func (m *MethodMetadata) BodyIndex() int {
	for i, p := range m.Params {
		if p.Kind == ParamBody {
			return i
		}
	}
	return -1
}
