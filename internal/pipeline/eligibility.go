package pipeline

import (
	"github.com/idmasse/mappingbot/internal/config"
	"github.com/idmasse/mappingbot/internal/flip"
)

// Policy decides which variants are ready for acceptance. CheckInventory
// gates on InventoryAmount against MinInventory (strictly above, or at least
// when InventoryInclusive is set); RequiredFlags must all be true on the
// variant's item mapping.
type Policy struct {
	CheckInventory     bool
	MinInventory       int
	InventoryInclusive bool
	RequiredFlags      []string
}

// InventoryPolicy accepts on stock level alone.
func InventoryPolicy(threshold int, inclusive bool) Policy {
	return Policy{
		CheckInventory:     true,
		MinInventory:       threshold,
		InventoryInclusive: inclusive,
	}
}

// CompletenessPolicy accepts only fully prepared item mappings, ignoring
// inventory.
func CompletenessPolicy() Policy {
	return Policy{
		RequiredFlags: []string{
			flip.FlagAllInformationProvided,
			flip.FlagPrefilledValuesVerified,
			flip.FlagDataPrefillingFinished,
			flip.FlagMandatoryAttributesConfigured,
		},
	}
}

// HybridPolicy requires both sufficient inventory and the import-information
// flag.
func HybridPolicy(threshold int, inclusive bool) Policy {
	return Policy{
		CheckInventory:     true,
		MinInventory:       threshold,
		InventoryInclusive: inclusive,
		RequiredFlags:      []string{flip.FlagAllInformationProvided},
	}
}

// PolicyFromConfig builds the policy selected by POLICY_PROFILE.
func PolicyFromConfig(cfg *config.Config) Policy {
	switch cfg.PolicyProfile {
	case "inventory":
		return InventoryPolicy(cfg.MinInventory, cfg.InventoryInclusive)
	case "completeness":
		return CompletenessPolicy()
	default:
		return HybridPolicy(cfg.MinInventory, cfg.InventoryInclusive)
	}
}

// Eligible reports whether the variant passes the policy. Callers should
// check for a missing item mapping id separately; a variant without an item
// mapping record fails any flag requirement here.
func (p Policy) Eligible(v flip.Variant) bool {
	if p.CheckInventory {
		if p.InventoryInclusive {
			if v.InventoryAmount < p.MinInventory {
				return false
			}
		} else if v.InventoryAmount <= p.MinInventory {
			return false
		}
	}
	for _, flag := range p.RequiredFlags {
		if !v.ItemMapping.Flag(flag) {
			return false
		}
	}
	return true
}
