package entity

import "strings"

// PublicationType is the closed set of publication kinds. The stored value
// is the variant name; External is the lowercase form used by the deposit
// service and the explore filter.
type PublicationType string

const (
	PublicationNone                  PublicationType = "NONE"
	PublicationAnnotationCollection  PublicationType = "ANNOTATION_COLLECTION"
	PublicationBook                  PublicationType = "BOOK"
	PublicationBookSection           PublicationType = "BOOK_SECTION"
	PublicationConferencePaper       PublicationType = "CONFERENCE_PAPER"
	PublicationDataManagementPlan    PublicationType = "DATA_MANAGEMENT_PLAN"
	PublicationJournalArticle        PublicationType = "JOURNAL_ARTICLE"
	PublicationPatent                PublicationType = "PATENT"
	PublicationPreprint              PublicationType = "PREPRINT"
	PublicationProjectDeliverable    PublicationType = "PROJECT_DELIVERABLE"
	PublicationProjectMilestone      PublicationType = "PROJECT_MILESTONE"
	PublicationProposal              PublicationType = "PROPOSAL"
	PublicationReport                PublicationType = "REPORT"
	PublicationSoftwareDocumentation PublicationType = "SOFTWARE_DOCUMENTATION"
	PublicationTaxonomicTreatment    PublicationType = "TAXONOMIC_TREATMENT"
	PublicationTechnicalNote         PublicationType = "TECHNICAL_NOTE"
	PublicationThesis                PublicationType = "THESIS"
	PublicationWorkingPaper          PublicationType = "WORKING_PAPER"
	PublicationOther                 PublicationType = "OTHER"
)

var publicationTypes = []struct {
	kind     PublicationType
	external string
}{
	{PublicationNone, "none"},
	{PublicationAnnotationCollection, "annotationcollection"},
	{PublicationBook, "book"},
	{PublicationBookSection, "section"},
	{PublicationConferencePaper, "conferencepaper"},
	{PublicationDataManagementPlan, "datamanagementplan"},
	{PublicationJournalArticle, "article"},
	{PublicationPatent, "patent"},
	{PublicationPreprint, "preprint"},
	{PublicationProjectDeliverable, "deliverable"},
	{PublicationProjectMilestone, "milestone"},
	{PublicationProposal, "proposal"},
	{PublicationReport, "report"},
	{PublicationSoftwareDocumentation, "softwaredocumentation"},
	{PublicationTaxonomicTreatment, "taxonomictreatment"},
	{PublicationTechnicalNote, "technicalnote"},
	{PublicationThesis, "thesis"},
	{PublicationWorkingPaper, "workingpaper"},
	{PublicationOther, "other"},
}

// External returns the lowercase wire value, empty for unknown variants.
func (p PublicationType) External() string {
	for _, pt := range publicationTypes {
		if pt.kind == p {
			return pt.external
		}
	}
	return ""
}

func (p PublicationType) Valid() bool {
	return p.External() != ""
}

// IsNone treats the empty value like NONE.
func (p PublicationType) IsNone() bool {
	return p == "" || p == PublicationNone
}

// ParsePublicationType accepts either the wire value or the variant name,
// case-insensitively.
func ParsePublicationType(s string) (PublicationType, bool) {
	s = strings.TrimSpace(s)
	for _, pt := range publicationTypes {
		if strings.EqualFold(pt.external, s) || strings.EqualFold(string(pt.kind), s) {
			return pt.kind, true
		}
	}
	return "", false
}

// PublicationTypes lists every variant in declaration order.
func PublicationTypes() []PublicationType {
	out := make([]PublicationType, len(publicationTypes))
	for i, pt := range publicationTypes {
		out[i] = pt.kind
	}
	return out
}
