package app

import (
	"context"
	"fmt"

	"github.com/example/gendbuntu/internal/core/record"
	"github.com/example/gendbuntu/internal/ports/primary"
)

// fixture is one development record.
type fixture struct {
	kind   record.Kind
	fields record.Fields
}

var fixtures = []fixture{
	{record.KindIntervention, record.Fields{"type": "patrouille", "description": "Ronde de nuit secteur nord", "priority": "2"}},
	{record.KindIntervention, record.Fields{"type": "assistance", "description": "Assistance à personne", "address": "12 rue des Lilas"}},
	{record.KindSeriousIncident, record.Fields{"title": "Incendie entrepôt", "description": "Départ de feu maîtrisé", "severity": "grave", "incident_date": "2025-03-14"}},
	{record.KindOperationalReport, record.Fields{"title": "Ronde de nuit", "content": "RAS sur l'ensemble du secteur.", "type": "ronde"}},
	{record.KindLegalPV, record.Fields{"type": "pve", "title": "Stationnement gênant", "description": "Véhicule sur passage piéton"}},
	{record.KindRegistryPV, record.Fields{"type": "pv", "description": "Main courante du poste"}},
}

// SeedFixtures creates development records through the service, so every
// fixture is numbered, audited and followed up like a real record.
// The registry PV fixture also yields its linked legal PV.
func SeedFixtures(ctx context.Context, svc primary.RecordService, actor string) ([]*primary.Record, error) {
	created := make([]*primary.Record, 0, len(fixtures))
	for _, f := range fixtures {
		rec, err := svc.CreateRecord(ctx, primary.CreateRecordRequest{
			Kind:   f.kind,
			Fields: f.fields.Clone(),
			Actor:  actor,
		})
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", f.kind, err)
		}
		created = append(created, rec)
	}
	return created, nil
}
