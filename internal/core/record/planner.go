package record

import "github.com/example/gendbuntu/internal/core/effects"

// FollowUpState is the side-effect state of a persisted record.
type FollowUpState struct {
	Kind             Kind
	RecordID         string
	Linked           bool
	HasDocument      bool
	NotificationSent bool
}

// PlanCreateFollowUps returns the side effects that follow a successful create.
// Registry PVs spawn their legal PV; operational reports are rendered then notified.
func PlanCreateFollowUps(kind Kind, recordID string) []effects.Effect {
	return PlanFollowUps(FollowUpState{Kind: kind, RecordID: recordID})
}

// PlanFollowUps returns the side effects still missing for a record.
// It is used both after create and when an operator retries stuck records.
func PlanFollowUps(state FollowUpState) []effects.Effect {
	spec, ok := Lookup(state.Kind)
	if !ok {
		return nil
	}

	var effs []effects.Effect
	if state.Kind == KindRegistryPV && !state.Linked {
		effs = append(effs, effects.LinkEffect{RegistryID: state.RecordID})
	}
	if spec.RenderOnCreate && !state.HasDocument {
		effs = append(effs, effects.RenderEffect{Kind: string(state.Kind), RecordID: state.RecordID})
	}
	if spec.NotifyOnCreate && !state.NotificationSent {
		effs = append(effs, effects.NotifyEffect{Kind: string(state.Kind), RecordID: state.RecordID})
	}
	return effs
}
