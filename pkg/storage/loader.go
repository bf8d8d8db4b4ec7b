package storage

import (
	"encoding/json"
	"fmt"
	"os"
)

// RecordExport is the JSON interchange envelope for record data.
//
// Parsing of the original source file format is a collaborator concern;
// this envelope is what those collaborators hand to the engine. It is also
// what `kindred import` reads.
type RecordExport struct {
	Individuals []*Individual `json:"individuals"`
	Families    []*Family     `json:"families"`
}

// LoadExport reads a RecordExport from a JSON file. Record IDs are
// normalized to the canonical @-delimited form on load so exports with
// bare IDs remain usable.
func LoadExport(path string) (*RecordExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var export RecordExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}
	export.normalize()
	return &export, nil
}

// SaveExport writes a RecordExport as indented JSON.
func SaveExport(path string, export *RecordExport) error {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ImportInto writes every record of the export into the store.
func ImportInto(store Store, export *RecordExport) error {
	for _, indi := range export.Individuals {
		if err := store.PutIndividual(indi); err != nil {
			return fmt.Errorf("import individual %s: %w", indi.ID, err)
		}
	}
	for _, fam := range export.Families {
		if err := store.PutFamily(fam); err != nil {
			return fmt.Errorf("import family %s: %w", fam.ID, err)
		}
	}
	return nil
}

func (e *RecordExport) normalize() {
	for _, indi := range e.Individuals {
		if indi == nil {
			continue
		}
		indi.ID = NormalizeIndividualID(string(indi.ID))
		for k, famID := range indi.FamiliesAsChild {
			indi.FamiliesAsChild[k] = NormalizeFamilyID(string(famID))
		}
		for k, famID := range indi.FamiliesAsSpouse {
			indi.FamiliesAsSpouse[k] = NormalizeFamilyID(string(famID))
		}
		// Re-derive years in case the export carried raw text only.
		if indi.BirthDate.Year == 0 && indi.BirthDate.Raw != "" {
			indi.BirthDate = ParseDate(indi.BirthDate.Raw)
		}
		if indi.DeathDate.Year == 0 && indi.DeathDate.Raw != "" {
			indi.DeathDate = ParseDate(indi.DeathDate.Raw)
		}
	}
	for _, fam := range e.Families {
		if fam == nil {
			continue
		}
		fam.ID = NormalizeFamilyID(string(fam.ID))
		if fam.HusbandID != "" {
			fam.HusbandID = NormalizeIndividualID(string(fam.HusbandID))
		}
		if fam.WifeID != "" {
			fam.WifeID = NormalizeIndividualID(string(fam.WifeID))
		}
		for k, childID := range fam.Children {
			fam.Children[k] = NormalizeIndividualID(string(childID))
		}
	}
}
