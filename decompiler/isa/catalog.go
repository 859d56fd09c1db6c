package isa

import (
	"sort"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

type (
	// Catalog is a loaded, validated instruction-set spec plus the prefix
	// index the decoder consumes.
	Catalog struct {
		Specs []Spec

		// byPrefix holds every spec registered under a given prefix
		// bitstring. Most prefixes have exactly one; a prefix shared by two
		// specs carries a range check on at least one of them, and Lookup's
		// caller (the decoder) picks the one whose range matches.
		byPrefix   map[string][]*Spec
		maxPrefLen int
	}

	// UnknownVarError is raised by Load when a branch or array declaration
	// names an operand or stack-input that the instruction never declares.
	UnknownVarError struct {
		Mnemonic string
		Var      string
	}

	// DuplicatePrefixError is raised by Load when two specs share a
	// prefix with no range check to disambiguate them.
	DuplicatePrefixError struct {
		Prefix string
		A, B   string
	}
)

func (e *UnknownVarError) Error() string {
	return "instruction " + e.Mnemonic + ": unknown var " + e.Var
}

func (e *DuplicatePrefixError) Error() string {
	return "prefix " + e.Prefix + " claimed by both " + e.A + " and " + e.B + " with no range check"
}

// Load parses and validates a YAML-encoded instruction-set catalog.
func Load(data []byte) (*Catalog, error) {
	var specs []Spec

	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, errors.Wrap(err, "unmarshal catalog")
	}

	return build(specs)
}

func build(specs []Spec) (_ *Catalog, err error) {
	c := &Catalog{
		Specs:    specs,
		byPrefix: make(map[string][]*Spec, len(specs)),
	}

	for i := range specs {
		s := &specs[i]

		if err := validateSpec(s); err != nil {
			return nil, errors.Wrap(err, "spec %v", s.Mnemonic)
		}

		if len(s.Bytecode.Prefix) > c.maxPrefLen {
			c.maxPrefLen = len(s.Bytecode.Prefix)
		}

		existing := c.byPrefix[s.Bytecode.Prefix]
		if len(existing) > 0 {
			hasRangeCheck := s.Bytecode.OperandsRange != nil

			for _, prev := range existing {
				if prev.Bytecode.OperandsRange != nil {
					hasRangeCheck = true
				}
			}

			if !hasRangeCheck {
				return nil, &DuplicatePrefixError{Prefix: s.Bytecode.Prefix, A: existing[0].Mnemonic, B: s.Mnemonic}
			}
		}

		c.byPrefix[s.Bytecode.Prefix] = append(existing, s)
	}

	// keep a stable, mnemonic-sorted view for dump-isa and tests; the view is
	// a copy, so the byPrefix pointers into specs keep naming the same specs
	c.Specs = append([]Spec{}, specs...)
	sort.SliceStable(c.Specs, func(i, j int) bool { return c.Specs[i].Mnemonic < c.Specs[j].Mnemonic })

	return c, nil
}

func validateSpec(s *Spec) error {
	known := map[string]bool{}

	for _, o := range s.Bytecode.Operands {
		known[o.Name] = true
	}

	for _, in := range s.ValueFlow.Inputs {
		known[in.Name] = true
	}

	for _, o := range s.Bytecode.Operands {
		if o.Kind == KindSubslice {
			if o.BitsLengthVarSize != "" && !known[o.BitsLengthVarSize] {
				return &UnknownVarError{Mnemonic: s.Mnemonic, Var: o.BitsLengthVarSize}
			}

			if o.RefsLengthVarSize != "" && !known[o.RefsLengthVarSize] {
				return &UnknownVarError{Mnemonic: s.Mnemonic, Var: o.RefsLengthVarSize}
			}
		}
	}

	var checkEntries func(entries []StackEntry) error

	checkEntries = func(entries []StackEntry) error {
		for _, e := range entries {
			switch e.Shape {
			case "array":
				if e.LengthVar != "" && !known[e.LengthVar] {
					return &UnknownVarError{Mnemonic: s.Mnemonic, Var: e.LengthVar}
				}

				if err := checkEntries(e.ArrayEntry); err != nil {
					return err
				}
			case "conditional":
				for _, arm := range e.Match {
					if err := checkEntries(arm); err != nil {
						return err
					}
				}

				if err := checkEntries(e.Else); err != nil {
					return err
				}
			}
		}

		return nil
	}

	if err := checkEntries(s.ValueFlow.Inputs); err != nil {
		return err
	}

	if err := checkEntries(s.ValueFlow.Outputs); err != nil {
		return err
	}

	for _, b := range s.Control.Branches {
		if b.VarName == "" {
			continue
		}

		if known[b.VarName] {
			continue
		}

		// a branch may also source its continuation from a stack input
		// entry by the same name
		found := false

		for _, in := range s.ValueFlow.Inputs {
			if in.Name == b.VarName {
				found = true
				break
			}
		}

		if !found {
			return &UnknownVarError{Mnemonic: s.Mnemonic, Var: b.VarName}
		}
	}

	return nil
}

// Lookup returns the specs registered for an exact prefix bitstring, in
// registration order. Most prefixes resolve to a single spec; a prefix
// shared by several specs returns all of them so the caller can apply
// each one's range check.
func (c *Catalog) Lookup(prefix string) []*Spec {
	return c.byPrefix[prefix]
}

// MaxPrefixLen is the longest prefix bit-length in the catalog.
func (c *Catalog) MaxPrefixLen() int {
	return c.maxPrefLen
}
