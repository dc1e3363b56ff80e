package flip

// Brand is a seller entity onboarded to the platform, sourced from the
// onboarding listing.
type Brand struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	IntegrationCompleted bool   `json:"integrationCompleted"`
	UnapprovedItemsNo    int    `json:"unapprovedItemsNo"`
}

// ProductMapping links an external product to a catalog entry, one per
// parent product.
type ProductMapping struct {
	ID              string          `json:"id"`
	ExternalProduct ExternalProduct `json:"externalProduct"`
}

type ExternalProduct struct {
	Title string `json:"title"`
}

// Variant is a sellable unit of a mapped product. ItemMapping is the
// approvable sub-record and may be absent.
type Variant struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	InventoryAmount int          `json:"inventoryAmount"`
	ItemMapping     *ItemMapping `json:"itemMapping"`
}

// MappingID returns the item mapping id used by the accept endpoint, and
// whether the variant carries one at all.
func (v Variant) MappingID() (string, bool) {
	if v.ItemMapping == nil || v.ItemMapping.ID == "" {
		return "", false
	}
	return v.ItemMapping.ID, true
}

// ItemMapping carries the data-completeness flags checked before approval.
type ItemMapping struct {
	ID                               string `json:"id"`
	AllInformationForImportProvided  bool   `json:"allInformationForImportProvided"`
	PrefilledValuesVerified          bool   `json:"prefilledValuesVerified"`
	DataPrefillingFinished           bool   `json:"dataPrefillingFinished"`
	AllMandatoryAttributesConfigured bool   `json:"allMandatoryAttributesConfigured"`
}

// Completeness flag names as they appear in the API payloads.
const (
	FlagAllInformationProvided        = "allInformationForImportProvided"
	FlagPrefilledValuesVerified       = "prefilledValuesVerified"
	FlagDataPrefillingFinished        = "dataPrefillingFinished"
	FlagMandatoryAttributesConfigured = "allMandatoryAttributesConfigured"
)

// Flag reads a completeness flag by its payload name. Unknown names are
// treated as unset.
func (m *ItemMapping) Flag(name string) bool {
	if m == nil {
		return false
	}
	switch name {
	case FlagAllInformationProvided:
		return m.AllInformationForImportProvided
	case FlagPrefilledValuesVerified:
		return m.PrefilledValuesVerified
	case FlagDataPrefillingFinished:
		return m.DataPrefillingFinished
	case FlagMandatoryAttributesConfigured:
		return m.AllMandatoryAttributesConfigured
	default:
		return false
	}
}

// AcceptResponse is the accept endpoint's body: one result per accepted item
// plus a separate list of per-item errors.
type AcceptResponse struct {
	Data   []AcceptResult `json:"data"`
	Errors []AcceptError  `json:"errors"`
}

type AcceptResult struct {
	Success bool `json:"success"`
}

// AcceptError entries only count as failures when success is explicitly
// false; entries without the field are informational.
type AcceptError struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// Approved counts the items the API reports as accepted.
func (r *AcceptResponse) Approved() int {
	n := 0
	for _, item := range r.Data {
		if item.Success {
			n++
		}
	}
	return n
}

// Failed counts the error entries with success explicitly false.
func (r *AcceptResponse) Failed() int {
	n := 0
	for _, e := range r.Errors {
		if e.Success != nil && !*e.Success {
			n++
		}
	}
	return n
}

// listResponse is the common paged listing envelope.
type listResponse[T any] struct {
	Data []T `json:"data"`
}

// detailedMappingResponse is the nested shape returned by the detailed
// mapping endpoint, where variants sit inside their own paged envelope.
type detailedMappingResponse struct {
	Data struct {
		Variants struct {
			Data []Variant `json:"data"`
		} `json:"variants"`
	} `json:"data"`
}
