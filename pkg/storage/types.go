// Package storage provides the record store interface and implementations for Kindred.
//
// The record store supplies normalized genealogical records (individuals and
// families) to the engine. It is deliberately dumb: no derived relationship
// data is ever persisted; parent, child, sibling and spouse edges are
// computed on demand from the family references carried on the records, and
// the engine's lookup structures are rebuilt from a store snapshot at startup.
//
// Design principles:
//   - Testability through the Store interface (memory and badger implementations)
//   - Thread-safe implementations
//   - Records are immutable once the engine's build phase has read them
//
// Example Usage:
//
//	store := storage.NewMemoryStore()
//	defer store.Close()
//
//	store.PutIndividual(&storage.Individual{
//		ID:        "@I1@",
//		GivenName: "Alice",
//		Surname:   "Miller",
//		Sex:       storage.SexFemale,
//		BirthDate: storage.ParseDate("12 MAR 1901"),
//	})
//
//	store.PutFamily(&storage.Family{
//		ID:       "@F1@",
//		WifeID:   "@I1@",
//		Children: []storage.IndividualID{"@I2@"},
//	})
package storage

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Common errors
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidID     = errors.New("invalid id")
	ErrStoreClosed   = errors.New("store closed")
)

// IndividualID is a strongly-typed identifier for individual records.
//
// IDs use the @X@-delimited form that GEDCOM-derived exports carry
// (e.g. "@I123@"). Use NormalizeIndividualID to accept bare forms
// from callers.
type IndividualID string

// FamilyID is a strongly-typed identifier for family records.
type FamilyID string

// NormalizeIndividualID converts a caller-supplied reference ("I123",
// "@I123@") to the canonical @-delimited form used for storage lookups.
func NormalizeIndividualID(s string) IndividualID {
	return IndividualID(normalizeRef(s))
}

// NormalizeFamilyID converts a caller-supplied family reference to the
// canonical @-delimited form.
func NormalizeFamilyID(s string) FamilyID {
	return FamilyID(normalizeRef(s))
}

func normalizeRef(s string) string {
	stripped := strings.Trim(strings.TrimSpace(s), "@")
	if stripped == "" {
		return ""
	}
	return "@" + stripped + "@"
}

// Sex of an individual. Unknown is a legitimate value, not an error.
type Sex string

const (
	SexMale    Sex = "M"
	SexFemale  Sex = "F"
	SexUnknown Sex = "U"
)

// Event type tags carried over from the source records.
const (
	EventBirth          = "BIRT"
	EventDeath          = "DEAT"
	EventResidence      = "RESI"
	EventOccupation     = "OCCU"
	EventGeneric        = "EVEN"
	EventImmigration    = "IMMI"
	EventCensus         = "CENS"
	EventNaturalization = "NATU"
)

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// Date is a possibly partial genealogical date: full text is preserved in
// Raw, and the extracted year (or year range) is available for arithmetic.
// A zero Year means the year is unknown.
type Date struct {
	Raw     string `json:"raw,omitempty"`
	Year    int    `json:"year,omitempty"`
	EndYear int    `json:"end_year,omitempty"`
}

// ParseDate extracts year information from free-form date text
// ("12 MAR 1901", "BET 1850 AND 1855", "1901"). The text itself is kept
// verbatim; only 4-digit years are interpreted.
func ParseDate(raw string) Date {
	d := Date{Raw: strings.TrimSpace(raw)}
	matches := yearPattern.FindAllString(d.Raw, 2)
	if len(matches) > 0 {
		d.Year, _ = strconv.Atoi(matches[0])
	}
	if len(matches) > 1 {
		end, _ := strconv.Atoi(matches[1])
		if end > d.Year {
			d.EndYear = end
		}
	}
	return d
}

// IsZero reports whether no date information is present at all.
func (d Date) IsZero() bool {
	return d.Raw == "" && d.Year == 0
}

func (d Date) String() string {
	if d.Raw != "" {
		return d.Raw
	}
	if d.Year != 0 {
		return strconv.Itoa(d.Year)
	}
	return ""
}

// Event is a typed life event attached to an individual.
type Event struct {
	Type        string   `json:"type"`
	Date        Date     `json:"date,omitzero"`
	Place       string   `json:"place,omitempty"`
	Description string   `json:"description,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// Individual is a person record.
//
// FamiliesAsChild normally holds at most one reference, but the model
// tolerates more for re-parented or adopted cases; every consumer must
// treat it as a set. References are not guaranteed to resolve; the index
// builder reports dangling references as diagnostics rather than failing.
type Individual struct {
	ID           IndividualID `json:"id"`
	GivenName    string       `json:"given_name,omitempty"`
	Surname      string       `json:"surname,omitempty"`
	NameVariants []string     `json:"name_variants,omitempty"`
	Sex          Sex          `json:"sex,omitempty"`

	BirthDate  Date   `json:"birth_date,omitzero"`
	BirthPlace string `json:"birth_place,omitempty"`
	DeathDate  Date   `json:"death_date,omitzero"`
	DeathPlace string `json:"death_place,omitempty"`

	FamiliesAsChild  []FamilyID `json:"families_as_child,omitempty"`
	FamiliesAsSpouse []FamilyID `json:"families_as_spouse,omitempty"`

	Events []Event  `json:"events,omitempty"`
	Notes  []string `json:"notes,omitempty"`
}

// FullName joins the given name and surname, skipping empty parts.
func (i *Individual) FullName() string {
	parts := make([]string, 0, 2)
	if i.GivenName != "" {
		parts = append(parts, i.GivenName)
	}
	if i.Surname != "" {
		parts = append(parts, i.Surname)
	}
	return strings.Join(parts, " ")
}

// BirthYear returns the extracted birth year, or 0 when unknown.
func (i *Individual) BirthYear() int { return i.BirthDate.Year }

// DeathYear returns the extracted death year, or 0 when unknown.
func (i *Individual) DeathYear() int { return i.DeathDate.Year }

// Places returns every place string attached to the individual, in record
// order with duplicates removed: birth, death, then event places.
func (i *Individual) Places() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	add(i.BirthPlace)
	add(i.DeathPlace)
	for _, ev := range i.Events {
		add(ev.Place)
	}
	return out
}

// Summary is the short individual form used in list results.
type Summary struct {
	ID        IndividualID `json:"id"`
	Name      string       `json:"name"`
	BirthDate string       `json:"birth_date,omitempty"`
	DeathDate string       `json:"death_date,omitempty"`
}

// Summary returns the short form of the individual for list results.
func (i *Individual) Summary() Summary {
	return Summary{
		ID:        i.ID,
		Name:      i.FullName(),
		BirthDate: i.BirthDate.String(),
		DeathDate: i.DeathDate.String(),
	}
}

// Clone returns a deep copy so callers can never mutate stored records.
func (i *Individual) Clone() *Individual {
	if i == nil {
		return nil
	}
	out := *i
	out.NameVariants = append([]string(nil), i.NameVariants...)
	out.FamiliesAsChild = append([]FamilyID(nil), i.FamiliesAsChild...)
	out.FamiliesAsSpouse = append([]FamilyID(nil), i.FamiliesAsSpouse...)
	out.Notes = append([]string(nil), i.Notes...)
	if i.Events != nil {
		out.Events = make([]Event, len(i.Events))
		for k, ev := range i.Events {
			ev.Notes = append([]string(nil), ev.Notes...)
			out.Events[k] = ev
		}
	}
	return &out
}

// Family is a union record. Either parent reference may be empty
// (single-parent and same-sex unions), and children are ordered.
type Family struct {
	ID            FamilyID       `json:"id"`
	HusbandID     IndividualID   `json:"husband_id,omitempty"`
	WifeID        IndividualID   `json:"wife_id,omitempty"`
	Children      []IndividualID `json:"children,omitempty"`
	MarriageDate  Date           `json:"marriage_date,omitzero"`
	MarriagePlace string         `json:"marriage_place,omitempty"`
}

// Parents returns the non-empty parent references of the family.
func (f *Family) Parents() []IndividualID {
	out := make([]IndividualID, 0, 2)
	if f.HusbandID != "" {
		out = append(out, f.HusbandID)
	}
	if f.WifeID != "" {
		out = append(out, f.WifeID)
	}
	return out
}

// Clone returns a deep copy of the family record.
func (f *Family) Clone() *Family {
	if f == nil {
		return nil
	}
	out := *f
	out.Children = append([]IndividualID(nil), f.Children...)
	return &out
}

// Store is the record store interface consumed by the engine.
//
// All implementations MUST be thread-safe. Writes happen before the engine's
// build phase; after that the engine treats the store contents as frozen.
type Store interface {
	// Write operations (used by importers, before the build phase)
	PutIndividual(indi *Individual) error
	PutFamily(fam *Family) error

	// Read operations
	GetIndividual(id IndividualID) (*Individual, error)
	GetFamily(id FamilyID) (*Family, error)
	Individuals() ([]*Individual, error)
	Families() ([]*Family, error)

	// Stats
	IndividualCount() (int64, error)
	FamilyCount() (int64, error)

	// Lifecycle
	Close() error
}
