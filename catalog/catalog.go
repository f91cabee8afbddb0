// Package catalog defines the fixed set of resources the server exposes, one
// per top-level system card section. The catalog is shaped by the schema, not
// by the loaded document: it lists every section whether or not a given card
// provides it.
package catalog

import "github.com/ggoodman/systemcard-mcp/mcp"

// ID enumerates the catalog resources in listing order.
type ID int

const (
	Metadata ID = iota
	Purpose
	TechnicalInformation
	DataProvenance
	SecuritySafety
	Governance
	References

	numIDs
)

// URIScheme prefixes every resource URI.
const URIScheme = "system-card://"

// Entry binds a resource descriptor to the document section it serves.
type Entry struct {
	ID       ID
	Section  string
	Resource mcp.Resource
}

var entries = [numIDs]Entry{
	Metadata: {
		ID:      Metadata,
		Section: "metadata",
		Resource: mcp.Resource{
			URI:         URIScheme + "metadata",
			Name:        "System Metadata",
			Description: "AI system metadata including name, version, developer, and contact information",
			MimeType:    mcp.MimeTypeJSON,
		},
	},
	Purpose: {
		ID:      Purpose,
		Section: "purpose",
		Resource: mcp.Resource{
			URI:         URIScheme + "purpose",
			Name:        "System Purpose",
			Description: "Narrative description of the AI system's purpose and intended use",
			MimeType:    mcp.MimeTypeText,
		},
	},
	TechnicalInformation: {
		ID:      TechnicalInformation,
		Section: "technical_information",
		Resource: mcp.Resource{
			URI:         URIScheme + "technical-information",
			Name:        "Technical Information",
			Description: "Technical details including AI model, hosting platform, development stack, and guardrails",
			MimeType:    mcp.MimeTypeJSON,
		},
	},
	DataProvenance: {
		ID:      DataProvenance,
		Section: "data_provenance_and_pedigree",
		Resource: mcp.Resource{
			URI:         URIScheme + "data-provenance",
			Name:        "Data Provenance and Pedigree",
			Description: "Information about base model, augmentation sources, and data lineage",
			MimeType:    mcp.MimeTypeJSON,
		},
	},
	SecuritySafety: {
		ID:      SecuritySafety,
		Section: "security_and_safety",
		Resource: mcp.Resource{
			URI:         URIScheme + "security-safety",
			Name:        "Security and Safety",
			Description: "Security considerations, safety measures, and known issues",
			MimeType:    mcp.MimeTypeJSON,
		},
	},
	Governance: {
		ID:      Governance,
		Section: "governance",
		Resource: mcp.Resource{
			URI:         URIScheme + "governance",
			Name:        "Governance",
			Description: "Reporting instructions and contact information for governance",
			MimeType:    mcp.MimeTypeJSON,
		},
	},
	References: {
		ID:      References,
		Section: "references",
		Resource: mcp.Resource{
			URI:         URIScheme + "references",
			Name:        "References",
			Description: "Links and citations referenced in the system card",
			MimeType:    mcp.MimeTypeJSON,
		},
	},
}

// Len is the number of catalog resources.
const Len = int(numIDs)

// List returns the resource descriptors in catalog order. The slice is a
// fresh copy on every call.
func List() []mcp.Resource {
	out := make([]mcp.Resource, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Resource)
	}
	return out
}

// Entries returns every catalog entry in order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries[:])
	return out
}

// Get returns the entry for id.
func Get(id ID) (Entry, bool) {
	if id < 0 || id >= numIDs {
		return Entry{}, false
	}
	return entries[id], true
}

// Resolve looks up a resource by exact URI.
func Resolve(uri string) (Entry, bool) {
	for _, e := range entries {
		if e.Resource.URI == uri {
			return e, true
		}
	}
	return Entry{}, false
}

func (id ID) String() string {
	if e, ok := Get(id); ok {
		return e.Section
	}
	return "unknown"
}
