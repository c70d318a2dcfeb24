// Package record contains the pure business rules shared by every record kind.
// This is part of the Functional Core - no I/O, only pure functions.
package record

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies one of the numbered record families.
type Kind string

const (
	KindIntervention      Kind = "intervention"
	KindSeriousIncident   Kind = "serious_incident"
	KindOperationalReport Kind = "operational_report"
	KindLegalPV           Kind = "legal_pv"
	KindRegistryPV        Kind = "registry_pv"
)

// Fields carries kind-specific attribute values keyed by field name.
type Fields map[string]string

// Clone returns a copy of the fields.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// FieldStatus is the reserved field name carrying the lifecycle status.
const FieldStatus = "status"

// FieldSpec describes one kind-specific attribute.
type FieldSpec struct {
	Name     string
	Label    string
	Required bool
	Allowed  []string // empty means free text
	Default  string
	Date     bool
	Check    func(string) error
}

// Spec is the static description of a record kind.
type Spec struct {
	Kind   Kind
	Title  string // document heading
	Prefix string // identifier prefix; legal PVs derive it from their type
	Fields []FieldSpec

	// Statuses lists every known status; the first one is the initial status.
	Statuses []string

	// LinkField names the cross-reference column, empty for unlinked kinds.
	LinkField string
	// LinkOnCreate allows callers to set LinkField when creating the record.
	LinkOnCreate bool

	HeadlineField  string
	BodyField      string
	Audited        bool
	RenderOnCreate bool
	NotifyOnCreate bool
}

// Field returns the spec of the named field.
func (s Spec) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns the attribute names in declaration order.
func (s Spec) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// InitialStatus returns the status given to new records of the kind.
func (s Spec) InitialStatus() string {
	return s.Statuses[0]
}

// HasStatus reports whether status is known for the kind.
func (s Spec) HasStatus(status string) bool {
	for _, st := range s.Statuses {
		if st == status {
			return true
		}
	}
	return false
}

var (
	severities = []string{"critique", "grave", "moyen", "leger"}
	pvTypes    = []string{"pv", "pve"}
)

var specs = map[Kind]Spec{
	KindIntervention: {
		Kind:   KindIntervention,
		Title:  "FICHE D'INTERVENTION",
		Prefix: "INT",
		Fields: []FieldSpec{
			{Name: "type", Label: "Type", Required: true},
			{Name: "description", Label: "Description", Required: true},
			{Name: "address", Label: "Adresse"},
			{Name: "coordinates", Label: "Coordonnées"},
			{Name: "priority", Label: "Priorité", Default: "3", Check: checkPriority},
			{Name: "assigned_unit_id", Label: "Unité affectée"},
			{Name: "started_at", Label: "Début", Date: true, Check: checkDate},
			{Name: "ended_at", Label: "Fin", Date: true, Check: checkDate},
		},
		Statuses:      []string{"en_cours", "terminee", "critique", "annulee"},
		HeadlineField: "type",
		BodyField:     "description",
		Audited:       true,
	},
	KindSeriousIncident: {
		Kind:   KindSeriousIncident,
		Title:  "ÉVÉNEMENT GRAVE",
		Prefix: "INC",
		Fields: []FieldSpec{
			{Name: "title", Label: "Titre", Required: true},
			{Name: "description", Label: "Description", Required: true},
			{Name: "severity", Label: "Gravité", Required: true, Allowed: severities},
			{Name: "incident_date", Label: "Date de l'incident", Required: true, Date: true, Check: checkDate},
			{Name: "location", Label: "Lieu"},
			{Name: "intervention_id", Label: "Intervention liée"},
			{Name: "report_id", Label: "Compte-rendu lié"},
		},
		Statuses:      []string{"en_cours", "resolu", "clos"},
		HeadlineField: "title",
		BodyField:     "description",
		Audited:       true,
	},
	KindOperationalReport: {
		Kind:   KindOperationalReport,
		Title:  "COMPTE-RENDU OPÉRATIONNEL",
		Prefix: "CR",
		Fields: []FieldSpec{
			{Name: "title", Label: "Titre", Required: true},
			{Name: "content", Label: "Contenu", Required: true},
			{Name: "type", Label: "Type", Required: true},
			{Name: "incident_date", Label: "Date de l'incident", Date: true, Check: checkDate},
		},
		Statuses:       []string{"draft", "validated"},
		HeadlineField:  "title",
		BodyField:      "content",
		RenderOnCreate: true,
		NotifyOnCreate: true,
	},
	KindLegalPV: {
		Kind:  KindLegalPV,
		Title: "PROCÈS-VERBAL",
		Fields: []FieldSpec{
			{Name: "type", Label: "Type", Required: true, Allowed: pvTypes},
			{Name: "title", Label: "Titre"},
			{Name: "description", Label: "Description", Required: true},
			{Name: "incident_date", Label: "Date de l'incident", Date: true, Check: checkDate},
			{Name: "location", Label: "Lieu"},
		},
		Statuses:      []string{"draft", "validated"},
		LinkField:     "linked_registry_id",
		LinkOnCreate:  true,
		HeadlineField: "title",
		BodyField:     "description",
	},
	KindRegistryPV: {
		Kind:   KindRegistryPV,
		Title:  "REGISTRE DES PROCÈS-VERBAUX",
		Prefix: "PV",
		Fields: []FieldSpec{
			{Name: "type", Label: "Type de PV", Required: true},
			{Name: "description", Label: "Description"},
		},
		Statuses:  []string{"draft", "validated"},
		LinkField: "linked_legal_id",
		BodyField: "description",
	},
}

var kindOrder = []Kind{KindIntervention, KindSeriousIncident, KindOperationalReport, KindLegalPV, KindRegistryPV}

// Kinds returns every record kind in a stable order.
func Kinds() []Kind {
	out := make([]Kind, len(kindOrder))
	copy(out, kindOrder)
	return out
}

// Lookup returns the spec of a kind.
func Lookup(kind Kind) (Spec, bool) {
	s, ok := specs[kind]
	return s, ok
}

// MustLookup returns the spec of a kind and panics for unknown kinds.
func MustLookup(kind Kind) Spec {
	s, ok := specs[kind]
	if !ok {
		panic(fmt.Sprintf("unknown record kind %q", kind))
	}
	return s
}

var kindAliases = map[string]Kind{
	"int":      KindIntervention,
	"inc":      KindSeriousIncident,
	"incident": KindSeriousIncident,
	"cr":       KindOperationalReport,
	"report":   KindOperationalReport,
	"lrpgn":    KindLegalPV,
	"legal":    KindLegalPV,
	"registry": KindRegistryPV,
	"registre": KindRegistryPV,
}

// ParseKind resolves a kind name or one of its short aliases.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if _, ok := specs[Kind(name)]; ok {
		return Kind(name), nil
	}
	if k, ok := kindAliases[name]; ok {
		return k, nil
	}
	return "", &ValidationError{Fields: []string{"kind"}, Reason: fmt.Sprintf("unknown record kind %q", s)}
}

// checkPriority accepts the stored form only: a single digit 1 to 5.
func checkPriority(v string) error {
	if len(v) != 1 || v[0] < '1' || v[0] > '5' {
		return fmt.Errorf("priority must be an integer between 1 and 5")
	}
	return nil
}

// dateLayouts are the accepted input formats for date fields.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ParseDate parses a date field value.
func ParseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

func checkDate(v string) error {
	_, err := ParseDate(v)
	return err
}
