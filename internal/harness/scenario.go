package harness

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/query"
)

// DefaultDriver is used when a scenario names no driver.
const DefaultDriver = "relational:sqlite3"

// Scenario is a sequence of submission queries and their expected
// translation or execution outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Driver is the TYPE:SUBTYPE identifier whose dialect translates the
	// steps. Defaults to relational:sqlite3.
	Driver string `yaml:"driver,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is one submission query.
type Step struct {
	Query string `yaml:"query"`

	// Binds makes the step a prepared statement.
	Binds []Bind `yaml:"binds,omitempty"`

	// ExpectSQL is the exact statement the translator must produce.
	ExpectSQL string `yaml:"expect_sql,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Execute runs the step against the scenario's in-memory database.
	Execute bool `yaml:"execute,omitempty"`

	// ExpectRows are the rendered result rows; NULL renders as "NULL".
	ExpectRows [][]string `yaml:"expect_rows,omitempty"`
}

// Bind is a typed bind argument in text form.
type Bind struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value,omitempty"`
}

// Arg converts b into a bind argument. Numeric types are parsed from Value;
// string, decimal and binary types carry its bytes.
func (b Bind) Arg() (query.BindArg, error) {
	typ, err := query.ParseBindType(b.Type)
	if err != nil {
		return query.BindArg{}, err
	}

	switch typ {
	case query.BindNull:
		return query.NullArg(), nil
	case query.BindInt32:
		v, err := strconv.ParseInt(b.Value, 10, 32)
		if err != nil {
			return query.BindArg{}, fmt.Errorf("bind %s: %w", b.Type, err)
		}
		return query.Int32Arg(int32(v)), nil
	case query.BindInt64:
		v, err := strconv.ParseInt(b.Value, 10, 64)
		if err != nil {
			return query.BindArg{}, fmt.Errorf("bind %s: %w", b.Type, err)
		}
		return query.Int64Arg(v), nil
	case query.BindFloat:
		v, err := strconv.ParseFloat(b.Value, 32)
		if err != nil {
			return query.BindArg{}, fmt.Errorf("bind %s: %w", b.Type, err)
		}
		return query.FloatArg(float32(v)), nil
	case query.BindDouble:
		v, err := strconv.ParseFloat(b.Value, 64)
		if err != nil {
			return query.BindArg{}, fmt.Errorf("bind %s: %w", b.Type, err)
		}
		return query.DoubleArg(v), nil
	default:
		arg := query.BlobArg([]byte(b.Value))
		arg.Type = typ
		return arg, nil
	}
}

// Args converts the step's binds. A step without binds yields nil.
func (s Step) Args() ([]query.BindArg, error) {
	if len(s.Binds) == 0 {
		return nil, nil
	}
	args := make([]query.BindArg, len(s.Binds))
	for i, b := range s.Binds {
		arg, err := b.Arg()
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return args, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Driver == "" {
		scenario.Driver = DefaultDriver
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, _, err := driver.SplitIdentifier(s.Driver); err != nil {
		return fmt.Errorf("driver: %w", err)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Query == "" {
			return fmt.Errorf("steps[%d]: query is required", i)
		}
		if step.Execute && s.Driver != DefaultDriver {
			return fmt.Errorf("steps[%d]: execute requires driver %s", i, DefaultDriver)
		}
		if len(step.ExpectRows) > 0 && !step.Execute {
			return fmt.Errorf("steps[%d]: expect_rows requires execute", i)
		}
		if step.ExpectError != "" && (step.ExpectSQL != "" || len(step.ExpectRows) > 0) {
			return fmt.Errorf("steps[%d]: expect_error excludes expect_sql and expect_rows", i)
		}
		if _, err := step.Args(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	return nil
}
