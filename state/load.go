package state

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
)

// refSuffix marks a template field whose value is a path reference
// rather than a literal.
const refSuffix = ".$"

// contextPrefix marks a reference that resolves against the execution
// context object rather than the working document.
const contextPrefix = "$$"

// Wire structs for the serialized definition format. YAML is a superset
// of JSON, so one decoder covers both encodings.

type fileDefinition struct {
	Name           string                `yaml:"name"`
	Comment        string                `yaml:"comment"`
	StartAt        string                `yaml:"start_at"`
	TimeoutSeconds int                   `yaml:"timeout_seconds"`
	States         map[string]*fileState `yaml:"states"`
}

type fileState struct {
	Type       string            `yaml:"type"`
	Comment    string            `yaml:"comment"`
	Task       string            `yaml:"task"`
	Parameters map[string]any    `yaml:"parameters"`
	Result     map[string]any    `yaml:"result"`
	ResultPath *string           `yaml:"result_path"`
	Branches   []*fileDefinition `yaml:"branches"`
	Choices    []fileChoice      `yaml:"choices"`
	Default    string            `yaml:"default"`
	Retry      []fileRetry       `yaml:"retry"`
	Catch      []fileCatch       `yaml:"catch"`
	Next       string            `yaml:"next"`
	End        bool              `yaml:"end"`
}

type fileChoice struct {
	Variable string `yaml:"variable"`
	Op       string `yaml:"op"`
	Value    any    `yaml:"value"`
	Next     string `yaml:"next"`
}

type fileRetry struct {
	ErrorEquals     []string `yaml:"error_equals"`
	IntervalSeconds float64  `yaml:"interval_seconds"`
	MaxAttempts     int      `yaml:"max_attempts"`
	BackoffRate     float64  `yaml:"backoff_rate"`
}

type fileCatch struct {
	ErrorEquals []string `yaml:"error_equals"`
	Next        string   `yaml:"next"`
	ResultPath  *string  `yaml:"result_path"`
}

// Load decodes a serialized definition (YAML or JSON) and validates it.
// Loading is the only time definition problems surface; a loaded
// Definition never fails structurally at run time.
func Load(data []byte) (*Definition, error) {
	var fd fileDefinition
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("state: decode definition: %w", err)
	}

	def, err := compileDefinition(&fd)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func compileDefinition(fd *fileDefinition) (*Definition, error) {
	def := &Definition{
		Name:           fd.Name,
		Comment:        fd.Comment,
		StartAt:        fd.StartAt,
		TimeoutSeconds: fd.TimeoutSeconds,
		States:         make(map[string]*State, len(fd.States)),
	}

	for name, fs := range fd.States {
		st, err := compileState(fs)
		if err != nil {
			return nil, fmt.Errorf("state: state %q: %w", name, err)
		}
		def.States[name] = st
	}

	return def, nil
}

func compileState(fs *fileState) (*State, error) {
	st := &State{
		Type:    Type(fs.Type),
		Comment: fs.Comment,
		Task:    fs.Task,
		Next:    fs.Next,
		End:     fs.End,
		Default: fs.Default,
	}

	if fs.ResultPath != nil {
		p, err := document.ParsePath(*fs.ResultPath)
		if err != nil {
			return nil, fmt.Errorf("result_path: %w", err)
		}
		st.ResultPath = &p
	}

	if fs.Result != nil {
		st.Result = normalizeObject(fs.Result)
	}

	fields, err := compileParameters(fs.Parameters)
	if err != nil {
		return nil, err
	}
	st.Parameters = fields

	for i, fb := range fs.Branches {
		branch, berr := compileDefinition(fb)
		if berr != nil {
			return nil, fmt.Errorf("branch %d: %w", i, berr)
		}
		st.Branches = append(st.Branches, branch)
	}

	for i, fc := range fs.Choices {
		variable, cerr := document.ParsePath(fc.Variable)
		if cerr != nil {
			return nil, fmt.Errorf("choice %d variable: %w", i, cerr)
		}
		st.Choices = append(st.Choices, ChoiceRule{
			Variable: variable,
			Op:       Op(fc.Op),
			Value:    normalizeValue(fc.Value),
			Next:     fc.Next,
		})
	}

	for _, fr := range fs.Retry {
		rule := RetryRule{
			ErrorEquals:     fr.ErrorEquals,
			IntervalSeconds: fr.IntervalSeconds,
			MaxAttempts:     fr.MaxAttempts,
			BackoffRate:     fr.BackoffRate,
		}
		if rule.BackoffRate == 0 {
			rule.BackoffRate = 2.0
		}
		st.Retry = append(st.Retry, rule)
	}

	for i, fc := range fs.Catch {
		rule := CatchRule{ErrorEquals: fc.ErrorEquals, Next: fc.Next}
		if fc.ResultPath != nil {
			p, perr := document.ParsePath(*fc.ResultPath)
			if perr != nil {
				return nil, fmt.Errorf("catch %d result_path: %w", i, perr)
			}
			rule.ResultPath = &p
		}
		st.Catch = append(st.Catch, rule)
	}

	return st, nil
}

// compileParameters turns a serialized payload template into typed
// expressions. Keys suffixed ".$" hold path references; "$$."-prefixed
// references resolve against the execution context. Fields compile in
// sorted key order so payload construction is deterministic.
func compileParameters(params map[string]any) ([]Field, error) {
	if len(params) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		v := params[k]

		if !strings.HasSuffix(k, refSuffix) {
			fields = append(fields, Field{Key: k, Expr: Literal(normalizeValue(v))})
			continue
		}

		ref, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q: reference value must be a string, got %T", k, v)
		}
		p, err := document.ParsePath(ref)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}

		key := strings.TrimSuffix(k, refSuffix)
		if strings.HasPrefix(ref, contextPrefix) {
			fields = append(fields, Field{Key: key, Expr: ContextRef(p)})
		} else {
			fields = append(fields, Field{Key: key, Expr: PathRef(p)})
		}
	}

	return fields, nil
}

// normalizeValue rewrites YAML-decoded values into the JSON value
// domain: integer scalars widen to float64 so documents compare
// consistently regardless of which encoding a definition used.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeObject(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}

func normalizeObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}
