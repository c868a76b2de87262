// Package policy holds the per-environment table of operations a user may
// invoke and the validator that checks a parsed command against it.
package policy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"qslack/internal/config"
)

// Wildcard in AllowedUsers admits every user.
const Wildcard = "*"

//go:embed operations.yaml
var defaultTable []byte

type Set map[string]struct{}

func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Set) UnmarshalYAML(node *yaml.Node) error {
	var items []string
	if err := node.Decode(&items); err != nil {
		return err
	}
	*s = NewSet(items...)
	return nil
}

type OperationPolicy struct {
	RequiredOptions Set `yaml:"requiredOptions"`
	AcceptedOptions Set `yaml:"acceptedOptions"`
	AllowedUsers    Set `yaml:"allowedUsers"`

	// Arity is the exact number of positional arguments, nil for any.
	Arity *int `yaml:"arity"`
	// MinArgLength is the minimum rune length of every argument.
	MinArgLength int `yaml:"minArgLength"`
	// Usage is shown on an argument shape error. "{command}" expands to
	// the slash command.
	Usage string `yaml:"usage"`
}

func (p OperationPolicy) AllowsUser(username string) bool {
	return p.AllowedUsers.Has(Wildcard) || p.AllowedUsers.Has(username)
}

// Table is read once at start-up and never written afterwards.
type Table struct {
	envs map[config.Env]map[string]OperationPolicy
}

type document struct {
	Environments map[string]map[string]OperationPolicy `yaml:"environments"`
}

// Load parses a YAML policy document. Both environments must be present.
func Load(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	t := &Table{envs: map[config.Env]map[string]OperationPolicy{}}
	for name, ops := range doc.Environments {
		env, err := config.ParseEnv(name)
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		for op, p := range ops {
			if strings.TrimSpace(op) == "" {
				return nil, fmt.Errorf("policy %s: empty operation name", env)
			}
			if p.Arity != nil && *p.Arity < 0 {
				return nil, fmt.Errorf("policy %s/%s: negative arity", env, op)
			}
			if p.MinArgLength < 0 {
				return nil, fmt.Errorf("policy %s/%s: negative minArgLength", env, op)
			}
			if p.RequiredOptions == nil {
				p.RequiredOptions = Set{}
			}
			if p.AcceptedOptions == nil {
				p.AcceptedOptions = Set{}
			}
			if p.AllowedUsers == nil {
				p.AllowedUsers = Set{}
			}
			for req := range p.RequiredOptions {
				if !p.AcceptedOptions.Has(req) {
					return nil, fmt.Errorf("policy %s/%s: required option %s is not accepted", env, op, req)
				}
			}
			ops[op] = p
		}
		t.envs[env] = ops
	}
	for _, env := range config.Envs {
		if _, ok := t.envs[env]; !ok {
			return nil, fmt.Errorf("policy: environment %s is missing", env)
		}
	}
	return t, nil
}

// LoadFile reads the table from path, or the embedded default when path is
// empty.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Load(defaultTable)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Load(data)
}

func (t *Table) Lookup(env config.Env, operation string) (OperationPolicy, bool) {
	p, ok := t.envs[env][operation]
	return p, ok
}

// Operations lists the operations defined for env in lexical order.
func (t *Table) Operations(env config.Env) []string {
	ops := make([]string, 0, len(t.envs[env]))
	for op := range t.envs[env] {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
