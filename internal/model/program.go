package model

// Program is a serialized test program: an ordered list of operations run
// against one or more units.
type Program struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// StepKind is the operation performed by a step.
type StepKind string

const (
	// StepConstruct initialises a unit's state through a constructor.
	StepConstruct StepKind = "construct"
	// StepInvoke calls a method.
	StepInvoke StepKind = "invoke"
	// StepRead reads a field.
	StepRead StepKind = "read"
)

// Step is a single operation of a program. Exactly one of Construct, Invoke
// and Field is meaningful.
type Step struct {
	Unit      string   `yaml:"unit"`
	Construct bool     `yaml:"construct,omitempty"`
	Invoke    string   `yaml:"invoke,omitempty"`
	Field     string   `yaml:"field,omitempty"`
	Params    []string `yaml:"params,omitempty"`
	Args      []any    `yaml:"args,omitempty"`
}

// Kind reports which operation the step performs.
func (s Step) Kind() StepKind {
	switch {
	case s.Construct:
		return StepConstruct
	case s.Invoke != "":
		return StepInvoke
	default:
		return StepRead
	}
}

// Units returns the distinct unit names referenced by the program, in order
// of first use.
func (p *Program) Units() []string {
	seen := map[string]bool{}

	var units []string

	for _, step := range p.Steps {
		if step.Unit == "" || seen[step.Unit] {
			continue
		}

		seen[step.Unit] = true
		units = append(units, step.Unit)
	}

	return units
}
