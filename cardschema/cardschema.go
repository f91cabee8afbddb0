// Package cardschema describes the system card document as Go types and
// generates a Draft 2020-12 JSON Schema from them. The generated schema is a
// starting point for authors; the server validates against whatever schema
// file it is given.
package cardschema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaID is the $id stamped on generated schemas.
const SchemaID = "https://systemcard.invalid/schemas/ai-system-card.json"

// Card is the top-level system card document.
type Card struct {
	Metadata             Metadata             `json:"metadata" jsonschema:"description=Identity and ownership of the AI system"`
	Purpose              string               `json:"purpose" jsonschema:"minLength=1,description=Narrative purpose and intended use (markdown)"`
	TechnicalInformation TechnicalInformation `json:"technical_information"`
	DataProvenance       DataProvenance       `json:"data_provenance_and_pedigree"`
	SecuritySafety       SecuritySafety       `json:"security_and_safety"`
	Governance           Governance           `json:"governance"`
	References           []Reference          `json:"references,omitempty"`
}

type Metadata struct {
	Name        string   `json:"name" jsonschema:"minLength=1"`
	Version     string   `json:"version"`
	Developer   string   `json:"developer"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Contact     *Contact `json:"contact,omitempty"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

type TechnicalInformation struct {
	AIModel          AIModel  `json:"ai_model"`
	HostingPlatform  string   `json:"hosting_platform,omitempty"`
	DevelopmentStack []string `json:"development_stack,omitempty"`
	Guardrails       []string `json:"guardrails,omitempty"`
}

type AIModel struct {
	Name          string `json:"name"`
	Provider      string `json:"provider,omitempty"`
	Version       string `json:"version,omitempty"`
	ContextWindow int    `json:"context_window,omitempty" jsonschema:"minimum=1"`
}

type DataProvenance struct {
	BaseModel           string               `json:"base_model,omitempty"`
	AugmentationSources []AugmentationSource `json:"augmentation_sources,omitempty"`
	DataLineage         string               `json:"data_lineage,omitempty"`
}

type AugmentationSource struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type SecuritySafety struct {
	SecurityConsiderations []string `json:"security_considerations,omitempty"`
	SafetyMeasures         []string `json:"safety_measures,omitempty"`
	KnownIssues            []string `json:"known_issues,omitempty"`
}

type Governance struct {
	ReportingInstructions string   `json:"reporting_instructions"`
	Contact               *Contact `json:"contact,omitempty"`
}

type Reference struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Reflect builds the schema for Card with every definition inlined.
func Reflect() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	s := r.Reflect(new(Card))
	s.ID = jsonschema.ID(SchemaID)
	s.Title = "AI System Card"
	return s
}

// Generate returns the indented JSON encoding of Reflect.
func Generate() ([]byte, error) {
	b, err := json.MarshalIndent(Reflect(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return append(b, '\n'), nil
}
