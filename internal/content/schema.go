package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	errorMessageUnknownSection       = "content: unknown section"
	errorMessagePayloadShape         = "content: payload shape mismatch"
	errorMessageDuplicateItemID      = "content: duplicate item identifier"
	errorMessageEmptyPayload         = "content: empty payload"
	itemIdentifierField              = "id"
	payloadObjectPrefix         byte = '{'
	payloadArrayPrefix          byte = '['
)

var (
	// ErrUnknownSection indicates a section name outside the registry.
	ErrUnknownSection = errors.New(errorMessageUnknownSection)
	// ErrPayloadShape indicates the payload does not match the section's declared shape.
	ErrPayloadShape = errors.New(errorMessagePayloadShape)
	// ErrDuplicateItemIdentifier indicates two array items share an identifier.
	ErrDuplicateItemIdentifier = errors.New(errorMessageDuplicateItemID)
	// ErrEmptyPayload indicates a missing or empty data payload.
	ErrEmptyPayload = errors.New(errorMessageEmptyPayload)
)

// Shape declares whether a section's payload is a single object or a list of
// item records.
type Shape string

const (
	ShapeObject Shape = "object"
	ShapeArray  Shape = "array"
)

// FieldKind tells the dashboard editor which input to render for a field.
type FieldKind string

const (
	FieldText      FieldKind = "text"
	FieldMultiline FieldKind = "multiline"
	FieldRichText  FieldKind = "richtext"
	FieldImage     FieldKind = "image"
	FieldURL       FieldKind = "url"
	FieldEmail     FieldKind = "email"
)

// FieldSpec describes one editable field of a section payload (the object's
// fields, or each array item's fields).
type FieldSpec struct {
	Name  string
	Label string
	Kind  FieldKind
}

// SectionSpec is the declarative per-section schema that parameterizes the
// generic editor and renderer.
type SectionSpec struct {
	Name   string
	Label  string
	Shape  Shape
	Fields []FieldSpec
	// PublicLimit bounds how many items the public page shows for array
	// sections; zero means all.
	PublicLimit int
	// Hidden sections hold operational data and never render publicly.
	Hidden bool
}

// Well-known section names referenced outside the registry.
const (
	SectionHero    = "herosection"
	SectionAbout   = "aboutsection"
	SectionContact = "contactsection"
	SectionUser    = "usersection"
	SectionWebsite = "websitesection"
	SectionGallery = "gallerysection"
)

var registry = []SectionSpec{
	{
		Name:  SectionHero,
		Label: "Hero",
		Shape: ShapeObject,
		Fields: []FieldSpec{
			{Name: "title", Label: "Title", Kind: FieldText},
			{Name: "subTitle", Label: "Subtitle", Kind: FieldText},
			{Name: "description", Label: "Description", Kind: FieldMultiline},
			{Name: "buttonText", Label: "Button text", Kind: FieldText},
			{Name: "image", Label: "Image", Kind: FieldImage},
		},
	},
	{
		Name:  SectionAbout,
		Label: "About",
		Shape: ShapeObject,
		Fields: []FieldSpec{
			{Name: "title", Label: "Title", Kind: FieldText},
			{Name: "description", Label: "Description", Kind: FieldRichText},
			{Name: "image", Label: "Image", Kind: FieldImage},
		},
	},
	{
		Name:  "educationsection",
		Label: "Education",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "institution", Label: "Institution", Kind: FieldText},
			{Name: "degree", Label: "Degree", Kind: FieldText},
			{Name: "period", Label: "Period", Kind: FieldText},
			{Name: "description", Label: "Description", Kind: FieldMultiline},
		},
	},
	{
		Name:  SectionGallery,
		Label: "Gallery",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "title", Label: "Title", Kind: FieldText},
			{Name: "image", Label: "Image", Kind: FieldImage},
		},
		PublicLimit: 6,
	},
	{
		Name:  "blogsection",
		Label: "Blog",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "title", Label: "Title", Kind: FieldText},
			{Name: "content", Label: "Content", Kind: FieldRichText},
			{Name: "image", Label: "Cover image", Kind: FieldImage},
			{Name: "date", Label: "Date", Kind: FieldText},
		},
		PublicLimit: 3,
	},
	{
		Name:  "servicessection",
		Label: "Services",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "title", Label: "Title", Kind: FieldText},
			{Name: "description", Label: "Description", Kind: FieldMultiline},
			{Name: "image", Label: "Icon", Kind: FieldImage},
		},
	},
	{
		Name:  "programsection",
		Label: "Programs",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "name", Label: "Name", Kind: FieldText},
			{Name: "duration", Label: "Duration", Kind: FieldText},
			{Name: "description", Label: "Description", Kind: FieldMultiline},
			{Name: "image", Label: "Image", Kind: FieldImage},
		},
	},
	{
		Name:  "sociallinksection",
		Label: "Social links",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "platform", Label: "Platform", Kind: FieldText},
			{Name: "url", Label: "URL", Kind: FieldURL},
		},
	},
	{
		Name:  "teamsection",
		Label: "Team",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "name", Label: "Name", Kind: FieldText},
			{Name: "role", Label: "Role", Kind: FieldText},
			{Name: "image", Label: "Photo", Kind: FieldImage},
		},
	},
	{
		Name:  "testimonialsection",
		Label: "Testimonials",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "name", Label: "Name", Kind: FieldText},
			{Name: "quote", Label: "Quote", Kind: FieldMultiline},
			{Name: "image", Label: "Photo", Kind: FieldImage},
		},
		PublicLimit: 4,
	},
	{
		Name:  "organizationsection",
		Label: "Organizations",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "name", Label: "Name", Kind: FieldText},
			{Name: "logo", Label: "Logo", Kind: FieldImage},
			{Name: "url", Label: "URL", Kind: FieldURL},
		},
	},
	{
		Name:  "bookingsection",
		Label: "Bookings",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "programName", Label: "Program", Kind: FieldText},
			{Name: "duration", Label: "Duration", Kind: FieldText},
			{Name: "date", Label: "Date", Kind: FieldText},
			{Name: "contact", Label: "Contact", Kind: FieldEmail},
			{Name: "details", Label: "Details", Kind: FieldMultiline},
		},
		Hidden: true,
	},
	{
		Name:  "achievementsection",
		Label: "Achievements",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "title", Label: "Title", Kind: FieldText},
			{Name: "year", Label: "Year", Kind: FieldText},
			{Name: "description", Label: "Description", Kind: FieldMultiline},
		},
	},
	{
		Name:  "certificatesection",
		Label: "Certificates",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "title", Label: "Title", Kind: FieldText},
			{Name: "issuer", Label: "Issuer", Kind: FieldText},
			{Name: "image", Label: "Image", Kind: FieldImage},
		},
	},
	{
		Name:  "skillsection",
		Label: "Skills",
		Shape: ShapeArray,
		Fields: []FieldSpec{
			{Name: "name", Label: "Name", Kind: FieldText},
			{Name: "level", Label: "Level", Kind: FieldText},
		},
	},
	{
		Name:  SectionContact,
		Label: "Contact",
		Shape: ShapeObject,
		Fields: []FieldSpec{
			{Name: "email", Label: "Email", Kind: FieldEmail},
			{Name: "phone", Label: "Phone", Kind: FieldText},
			{Name: "address", Label: "Address", Kind: FieldMultiline},
		},
	},
	{
		Name:  SectionWebsite,
		Label: "Website settings",
		Shape: ShapeObject,
		Fields: []FieldSpec{
			{Name: "siteName", Label: "Site name", Kind: FieldText},
			{Name: "logo", Label: "Logo", Kind: FieldImage},
			{Name: "footerText", Label: "Footer text", Kind: FieldText},
		},
	},
	{
		Name:  SectionUser,
		Label: "Admin account",
		Shape: ShapeObject,
		Fields: []FieldSpec{
			{Name: "user", Label: "Identifier", Kind: FieldText},
			{Name: "password", Label: "Password", Kind: FieldText},
		},
		Hidden: true,
	},
}

var registryByName = buildRegistryIndex()

func buildRegistryIndex() map[string]SectionSpec {
	index := make(map[string]SectionSpec, len(registry))
	for _, spec := range registry {
		index[spec.Name] = spec
	}
	return index
}

// Normalize lowercases and trims a section name; lookups are case-insensitive.
func Normalize(sectionName string) string {
	return strings.ToLower(strings.TrimSpace(sectionName))
}

// Lookup resolves a section spec by case-insensitive name.
func Lookup(sectionName string) (SectionSpec, bool) {
	spec, found := registryByName[Normalize(sectionName)]
	return spec, found
}

// All returns every registered section spec in declaration order.
func All() []SectionSpec {
	specs := make([]SectionSpec, len(registry))
	copy(specs, registry)
	return specs
}

// ValidatePayload checks a raw payload against the section's declared shape
// and, for array sections, assigns identifiers to items that lack one. It
// returns the payload to store, which may differ from the input.
func ValidatePayload(sectionName string, payload json.RawMessage) (json.RawMessage, error) {
	spec, known := Lookup(sectionName)
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, Normalize(sectionName))
	}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyPayload
	}

	switch spec.Shape {
	case ShapeObject:
		if trimmed[0] != payloadObjectPrefix {
			return nil, fmt.Errorf("%w: %s expects an object", ErrPayloadShape, spec.Name)
		}
		var probe map[string]any
		if unmarshalErr := json.Unmarshal(trimmed, &probe); unmarshalErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrPayloadShape, unmarshalErr)
		}
		return trimmed, nil
	case ShapeArray:
		if trimmed[0] != payloadArrayPrefix {
			return nil, fmt.Errorf("%w: %s expects an array", ErrPayloadShape, spec.Name)
		}
		return ensureItemIdentifiers(trimmed)
	default:
		return nil, fmt.Errorf("%w: %s", ErrPayloadShape, spec.Name)
	}
}

// ensureItemIdentifiers gives every object item a collision-resistant id.
// Client-generated ids are kept; duplicates are rejected rather than
// silently overwriting one another.
func ensureItemIdentifiers(payload json.RawMessage) (json.RawMessage, error) {
	var items []map[string]any
	if unmarshalErr := json.Unmarshal(payload, &items); unmarshalErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrPayloadShape, unmarshalErr)
	}

	seenIdentifiers := make(map[string]struct{}, len(items))
	for _, item := range items {
		identifier := itemIdentifier(item)
		if identifier == "" {
			identifier = uuid.NewString()
			item[itemIdentifierField] = identifier
		}
		if _, duplicate := seenIdentifiers[identifier]; duplicate {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItemIdentifier, identifier)
		}
		seenIdentifiers[identifier] = struct{}{}
	}

	normalized, marshalErr := json.Marshal(items)
	if marshalErr != nil {
		return nil, marshalErr
	}
	return normalized, nil
}

func itemIdentifier(item map[string]any) string {
	switch value := item[itemIdentifierField].(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		// Legacy timestamp-based numeric ids.
		return strings.TrimSpace(fmt.Sprintf("%.0f", value))
	default:
		return ""
	}
}
