package record

import (
	"fmt"
	"sort"
	"strings"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Fields  []string
}

// Error converts the guard result to a ValidationError if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return &ValidationError{Fields: r.Fields, Reason: r.Reason}
}

func deny(reason string, fields ...string) GuardResult {
	return GuardResult{Allowed: false, Reason: reason, Fields: fields}
}

// CanCreate evaluates whether a record can be created from fields.
// Rules:
// - Kind must be known
// - Every required field must be present and non-blank
// - Enumerated fields and checked fields must hold valid values
// - The link field is only accepted for kinds that allow linking on create
// - An explicit status must be known for the kind
func CanCreate(kind Kind, fields Fields) GuardResult {
	spec, ok := Lookup(kind)
	if !ok {
		return deny(fmt.Sprintf("unknown record kind %q", kind), "kind")
	}

	var missing []string
	for _, f := range spec.Fields {
		if f.Required && strings.TrimSpace(fields[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return deny("missing required fields", missing...)
	}

	if r := checkKnownFields(spec, fields, spec.LinkOnCreate); !r.Allowed {
		return r
	}
	return checkValues(spec, fields)
}

// CanUpdate evaluates whether a partial update is acceptable.
// Empty values mean "keep existing" and are not checked.
// Cross-reference fields are owned by the linker and cannot be patched.
func CanUpdate(kind Kind, fields Fields) GuardResult {
	spec, ok := Lookup(kind)
	if !ok {
		return deny(fmt.Sprintf("unknown record kind %q", kind), "kind")
	}
	if len(NonEmpty(fields)) == 0 {
		return deny("no changes provided")
	}
	if r := checkKnownFields(spec, fields, false); !r.Allowed {
		return r
	}
	return checkValues(spec, NonEmpty(fields))
}

// NonEmpty returns the fields holding a non-blank value.
func NonEmpty(fields Fields) Fields {
	out := Fields{}
	for k, v := range fields {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

func checkKnownFields(spec Spec, fields Fields, allowLink bool) GuardResult {
	var unknown []string
	for name := range fields {
		if name == FieldStatus {
			continue
		}
		if name == spec.LinkField && spec.LinkField != "" {
			if allowLink {
				continue
			}
			return deny(fmt.Sprintf("%s is managed by the cross-reference linker", name), name)
		}
		if _, ok := spec.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return deny(fmt.Sprintf("unknown fields for %s", spec.Kind), unknown...)
	}
	return GuardResult{Allowed: true}
}

func checkValues(spec Spec, fields Fields) GuardResult {
	if status, ok := fields[FieldStatus]; ok && status != "" && !spec.HasStatus(status) {
		return deny(fmt.Sprintf("status must be one of %s", strings.Join(spec.Statuses, ", ")), FieldStatus)
	}

	for _, f := range spec.Fields {
		v, ok := fields[f.Name]
		if !ok || v == "" {
			continue
		}
		if len(f.Allowed) > 0 && !contains(f.Allowed, strings.ToLower(v)) {
			return deny(fmt.Sprintf("%s must be one of %s", f.Name, strings.Join(f.Allowed, ", ")), f.Name)
		}
		if f.Check != nil {
			if err := f.Check(v); err != nil {
				return deny(err.Error(), f.Name)
			}
		}
	}
	return GuardResult{Allowed: true}
}

// ApplyDefaults fills defaults and normalises enumerated values for a new record.
func ApplyDefaults(kind Kind, fields Fields) Fields {
	spec := MustLookup(kind)
	out := fields.Clone()
	for _, f := range spec.Fields {
		v := strings.TrimSpace(out[f.Name])
		if v == "" && f.Default != "" {
			out[f.Name] = f.Default
			continue
		}
		if len(f.Allowed) > 0 && v != "" {
			out[f.Name] = strings.ToLower(v)
		}
	}
	if out[FieldStatus] == "" {
		out[FieldStatus] = spec.InitialStatus()
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
