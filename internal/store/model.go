package store

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a background job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal returns true for statuses that represent a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsResumable returns true for statuses a job can be resumed from.
func (s Status) IsResumable() bool {
	return s == StatusPaused || s == StatusPending
}

// Job is one tracked execution of a long-running task.
type Job struct {
	ID           string          `json:"job_id"`
	JobType      string          `json:"job_type"`
	Status       Status          `json:"status"`
	Query        json.RawMessage `json:"query,omitempty"`
	Progress     json.RawMessage `json:"progress,omitempty"`
	ResultsCount int             `json:"results_count"`
	Error        string          `json:"error,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ProgressMap decodes the job's last persisted progress snapshot.
// An absent or malformed snapshot decodes to an empty map.
func (j *Job) ProgressMap() map[string]any {
	m := map[string]any{}
	if len(j.Progress) > 0 {
		_ = json.Unmarshal(j.Progress, &m)
	}
	return m
}

// QueryMap decodes the job's structured query parameters.
func (j *Job) QueryMap() map[string]any {
	m := map[string]any{}
	if len(j.Query) > 0 {
		_ = json.Unmarshal(j.Query, &m)
	}
	return m
}

// Event is one append-only journal record.
type Event struct {
	ID        int64           `json:"id"`
	JobID     string          `json:"job_id,omitempty"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DataMap decodes the event payload, degrading malformed payloads to an
// empty map rather than failing.
func (e *Event) DataMap() map[string]any {
	m := map[string]any{}
	if len(e.EventData) > 0 {
		_ = json.Unmarshal(e.EventData, &m)
	}
	return m
}

// JobResult is one persisted result row attached to a job.
type JobResult struct {
	ID         int64           `json:"id"`
	JobID      string          `json:"job_id"`
	ResultType string          `json:"result_type"`
	ResultData json.RawMessage `json:"result_data,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Source is an external data source known to the catalog.
type Source struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	URL         string          `json:"url,omitempty"`
	SourceType  string          `json:"source_type,omitempty"`
	Priority    int             `json:"priority"`
	Enabled     bool            `json:"enabled"`
	LastScraped *time.Time      `json:"last_scraped,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ConfigMap decodes the source's opaque configuration.
func (s *Source) ConfigMap() map[string]any {
	m := map[string]any{}
	if len(s.Config) > 0 {
		_ = json.Unmarshal(s.Config, &m)
	}
	return m
}

type Plant struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	ScientificName string   `json:"scientific_name,omitempty"`
	Family         string   `json:"family,omitempty"`
	CommonNames    []string `json:"common_names,omitempty"`
	Description    string   `json:"description,omitempty"`
	TaxonomyID     string   `json:"taxonomy_id,omitempty"`
}

type Ingredient struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	Synonyms         []string `json:"synonyms,omitempty"`
	CASNumber        string   `json:"cas_number,omitempty"`
	PubChemCID       string   `json:"pubchem_cid,omitempty"`
	InChIKey         string   `json:"inchi_key,omitempty"`
	SMILES           string   `json:"smiles,omitempty"`
	MolecularFormula string   `json:"molecular_formula,omitempty"`
	MolecularWeight  float64  `json:"molecular_weight,omitempty"`
	Description      string   `json:"description,omitempty"`
}

type Ailment struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Synonyms    []string `json:"synonyms,omitempty"`
	ICD10Code   string   `json:"icd10_code,omitempty"`
	MeSHID      string   `json:"mesh_id,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
}

type Recipe struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Tradition   string `json:"tradition,omitempty"`
	Description string `json:"description,omitempty"`
	Preparation string `json:"preparation,omitempty"`
	Dosage      string `json:"dosage,omitempty"`
	SourceID    int64  `json:"source_id,omitempty"`
}
