// Package mission holds the LunarMonkeys client state: the connectivity
// probe, the session, and the primate and discovery stores that mirror the
// backend collections.
package mission

import "lunarmonkeys/internal/manifest"

// Role is a user's role on the mission.
type Role string

const (
	RoleScientist Role = "Scientist"
	RoleObserver  Role = "Observer"
)

// Species of an astro-primate.
type Species string

const (
	SpeciesChimpanzee     Species = "Chimpanzee"
	SpeciesRhesusMacaque  Species = "Rhesus Macaque"
	SpeciesSquirrelMonkey Species = "Squirrel Monkey"
)

// SpeciesOptions lists species in form order; the first is the default.
var SpeciesOptions = []Species{SpeciesChimpanzee, SpeciesRhesusMacaque, SpeciesSquirrelMonkey}

// Status of an astro-primate.
type Status string

const (
	StatusInTraining Status = "In Training"
	StatusDeployed   Status = "Deployed"
	StatusRetired    Status = "Retired"
)

// StatusOptions lists statuses in form order; the first is the default.
var StatusOptions = []Status{StatusInTraining, StatusDeployed, StatusRetired}

// Importance of a discovery.
type Importance string

const (
	ImportanceMinor          Importance = "Minor"
	ImportanceSignificant    Importance = "Significant"
	ImportanceGroundbreaking Importance = "Groundbreaking"
)

// ImportanceOptions lists importance levels in form order; the first is the default.
var ImportanceOptions = []Importance{ImportanceMinor, ImportanceSignificant, ImportanceGroundbreaking}

// User is an authenticated mission member. Read-only to the client.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsScientist reports whether the user may create records.
func (u *User) IsScientist() bool {
	return u != nil && u.Role == RoleScientist
}

// Primate is an astro-primate record.
type Primate struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Species   Species           `json:"species"`
	Status    Status            `json:"status"`
	Avatar    *manifest.FileRef `json:"avatar"`
	HandlerID string            `json:"handlerId,omitempty"`
	Handler   *User             `json:"handler"`
}

// HandlerName returns the handler's name, or "N/A" when unresolved.
func (p Primate) HandlerName() string {
	if p.Handler == nil || p.Handler.Name == "" {
		return "N/A"
	}
	return p.Handler.Name
}

// Discovery is a logged mission discovery.
type Discovery struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Importance    Importance        `json:"importance"`
	PrimateID     string            `json:"primateId,omitempty"`
	Primate       *Primate          `json:"primate"`
	ScientistID   string            `json:"scientistId,omitempty"`
	Scientist     *User             `json:"scientist"`
	ProofDocument *manifest.FileRef `json:"proofDocument"`
}

// PrimateName returns the discovering primate's name, or "Unknown Primate".
func (d Discovery) PrimateName() string {
	if d.Primate == nil || d.Primate.Name == "" {
		return "Unknown Primate"
	}
	return d.Primate.Name
}

// ScientistName returns the logging scientist's name, or "N/A".
func (d Discovery) ScientistName() string {
	if d.Scientist == nil || d.Scientist.Name == "" {
		return "N/A"
	}
	return d.Scientist.Name
}

// PrimateDraft is the input of a primate create. Avatar is optional.
type PrimateDraft struct {
	Name    string
	Species Species
	Status  Status
	Avatar  *manifest.File
}

// DiscoveryDraft is the input of a discovery create. PrimateID is required;
// ProofDocument is optional.
type DiscoveryDraft struct {
	Title         string
	Description   string
	Importance    Importance
	PrimateID     string
	ProofDocument *manifest.File
}
