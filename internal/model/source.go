// Package model defines the data structures shared by the execution and analysis engine.
package model

// Path represents a file system path.
type Path string

// Origin tells where a unit definition came from.
type Origin string

const (
	// OriginHost marks units resolved through the host environment.
	OriginHost Origin = "host"
	// OriginRemote marks units fetched from a code source and defined locally.
	OriginRemote Origin = "remote"
)

// Unit is a named, independently loadable compiled program artifact.
type Unit struct {
	Name     string
	Origin   Origin
	Digest   string
	Code     []byte
	Manifest *Manifest
}

// Manifest describes the members of a unit. It is the decoded form of the
// unit's compiled bytes.
type Manifest struct {
	Name         string         `yaml:"name"`
	Fields       map[string]any `yaml:"fields,omitempty"`
	Constructors []Constructor  `yaml:"constructors,omitempty"`
	Methods      []Method       `yaml:"methods,omitempty"`
}

// Param is a named, typed method or constructor parameter.
type Param struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Constructor initialises the unit's fields. Each entry of Init is an
// expression evaluated with the constructor parameters in scope.
type Constructor struct {
	Params []Param           `yaml:"params,omitempty"`
	Init   map[string]string `yaml:"init,omitempty"`
}

// Method is an invocable member. Body is the original expression; each entry
// of Mutants is an altered version of it, one per mutation point.
type Method struct {
	Name    string   `yaml:"name"`
	Params  []Param  `yaml:"params,omitempty"`
	Body    string   `yaml:"body"`
	Mutants []string `yaml:"mutants,omitempty"`
	// Assign names the field that receives the method result, if any.
	Assign string `yaml:"assign,omitempty"`
}

// ParamTypes returns the parameter types in declaration order.
func ParamTypes(params []Param) []string {
	types := make([]string, 0, len(params))
	for _, p := range params {
		types = append(types, p.Type)
	}

	return types
}

// MutantCount returns the number of mutation points declared by the manifest.
func (m *Manifest) MutantCount() int {
	if m == nil {
		return 0
	}

	total := 0
	for _, method := range m.Methods {
		total += len(method.Mutants)
	}

	return total
}
