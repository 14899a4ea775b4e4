package policy

import (
	"time"

	"github.com/glasswall/icap-management-ui/pkg/utils/rfctime"
	"github.com/google/uuid"
)

// Type tells which variant of a policy a document is.
type Type int

const (
	Draft   Type = 0
	Current Type = 1
	Expired Type = 2
)

func (t Type) String() string {
	switch t {
	case Draft:
		return "Draft"
	case Current:
		return "Current"
	case Expired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Action applied to one kind of content of a document.
type ContentManagementFlagAction int

const (
	Allow    ContentManagementFlagAction = 0
	Sanitise ContentManagementFlagAction = 1
	Disallow ContentManagementFlagAction = 2
)

func (a ContentManagementFlagAction) String() string {
	switch a {
	case Allow:
		return "Allow"
	case Sanitise:
		return "Sanitise"
	case Disallow:
		return "Disallow"
	default:
		return "Unknown"
	}
}

// Action of the Non-compliant File Service for files Glasswall could not pass.
type NcfsOption int

const (
	Refer NcfsOption = 0
	Block NcfsOption = 1
	Relay NcfsOption = 2
)

func (o NcfsOption) String() string {
	switch o {
	case Refer:
		return "Refer"
	case Block:
		return "Block"
	case Relay:
		return "Relay"
	default:
		return "Unknown"
	}
}

type PdfContentManagement struct {
	Acroform           ContentManagementFlagAction `json:"acroform"`
	ActionsAll         ContentManagementFlagAction `json:"actionsAll"`
	EmbeddedFiles      ContentManagementFlagAction `json:"embeddedFiles"`
	EmbeddedImages     ContentManagementFlagAction `json:"embeddedImages"`
	ExternalHyperlinks ContentManagementFlagAction `json:"externalHyperlinks"`
	InternalHyperlinks ContentManagementFlagAction `json:"internalHyperlinks"`
	Javascript         ContentManagementFlagAction `json:"javascript"`
	Metadata           ContentManagementFlagAction `json:"metadata"`
}

// Flags for Word and Excel documents.
type OfficeContentManagement struct {
	DynamicDataExchange ContentManagementFlagAction `json:"dynamicDataExchange"`
	EmbeddedFiles       ContentManagementFlagAction `json:"embeddedFiles"`
	EmbeddedImages      ContentManagementFlagAction `json:"embeddedImages"`
	ExternalHyperlinks  ContentManagementFlagAction `json:"externalHyperlinks"`
	InternalHyperlinks  ContentManagementFlagAction `json:"internalHyperlinks"`
	Macros              ContentManagementFlagAction `json:"macros"`
	Metadata            ContentManagementFlagAction `json:"metadata"`
	ReviewComments      ContentManagementFlagAction `json:"reviewComments"`
}

type PowerPointContentManagement struct {
	EmbeddedFiles      ContentManagementFlagAction `json:"embeddedFiles"`
	EmbeddedImages     ContentManagementFlagAction `json:"embeddedImages"`
	ExternalHyperlinks ContentManagementFlagAction `json:"externalHyperlinks"`
	InternalHyperlinks ContentManagementFlagAction `json:"internalHyperlinks"`
	Macros             ContentManagementFlagAction `json:"macros"`
	Metadata           ContentManagementFlagAction `json:"metadata"`
	ReviewComments     ContentManagementFlagAction `json:"reviewComments"`
}

type ContentManagementFlags struct {
	PdfContentManagement        PdfContentManagement        `json:"pdfContentManagement"`
	WordContentManagement       OfficeContentManagement     `json:"wordContentManagement"`
	ExcelContentManagement      OfficeContentManagement     `json:"excelContentManagement"`
	PowerPointContentManagement PowerPointContentManagement `json:"powerPointContentManagement"`
}

type NcfsRoute struct {
	NcfsRoutingUrl string `json:"ncfsRoutingUrl"`
}

type NcfsActions struct {
	UnprocessableFileTypeAction NcfsOption `json:"unprocessableFileTypeAction"`
	GlasswallBlockedFilesAction NcfsOption `json:"glasswallBlockedFilesAction"`
}

type AdaptionPolicy struct {
	ContentManagementFlags ContentManagementFlags `json:"contentManagementFlags"`
	NcfsRoute              NcfsRoute              `json:"ncfsRoute"`
	NcfsActions            NcfsActions            `json:"ncfsActions"`
	ErrorReportTemplate    string                 `json:"errorReportTemplate"`
}

type NcfsPolicy struct {
	NcfsActions NcfsActions `json:"ncfsActions"`
}

// Policy is a versioned configuration document
// managed by the Policy Management Service.
//
// Every field is a value, so assigning a Policy makes an independent copy.
type Policy struct {
	Id             uuid.UUID      `json:"id"`
	PolicyType     Type           `json:"policyType"`
	Published      rfctime.Time   `json:"published"`
	LastEdited     rfctime.Time   `json:"lastEdited"`
	Created        rfctime.Time   `json:"created"`
	UpdatedBy      string         `json:"updatedBy,omitempty"`
	AdaptionPolicy AdaptionPolicy `json:"adaptionPolicy"`
	NcfsPolicy     NcfsPolicy     `json:"ncfsPolicy"`
}

func (p Policy) Equal(o Policy) bool {
	return p.Id == o.Id &&
		p.PolicyType == o.PolicyType &&
		p.Published.Equal(o.Published) &&
		p.LastEdited.Equal(o.LastEdited) &&
		p.Created.Equal(o.Created) &&
		p.UpdatedBy == o.UpdatedBy &&
		p.AdaptionPolicy == o.AdaptionPolicy &&
		p.NcfsPolicy == o.NcfsPolicy
}

// Clone returns a copy of p which shares nothing with p.
//
// nil is cloned as nil.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Equal compares two optional policies. Two nils are equal.
func Equal(a, b *Policy) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

type History struct {
	TotalPolicies int      `json:"totalPolicies"`
	Policies      []Policy `json:"policies"`
}

func (h *History) Clone() *History {
	if h == nil {
		return nil
	}
	ps := make([]Policy, len(h.Policies))
	copy(ps, h.Policies)
	return &History{TotalPolicies: h.TotalPolicies, Policies: ps}
}

func (h History) Equal(o History) bool {
	if h.TotalPolicies != o.TotalPolicies || len(h.Policies) != len(o.Policies) {
		return false
	}
	for nth := range h.Policies {
		if !h.Policies[nth].Equal(o.Policies[nth]) {
			return false
		}
	}
	return true
}

// CreatedAt returns the creation time of the policy, or zero time if unknown.
func (p Policy) CreatedAt() time.Time {
	return p.Created.Time()
}
