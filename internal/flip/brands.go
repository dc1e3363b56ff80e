package flip

// BrandFilter parameterizes the brand onboarding listing. Provider selects
// by connector, Platform by connected platform, Name by exact brand name.
type BrandFilter struct {
	Name          string
	Provider      []string
	Platform      []string
	DisplayStatus string
}

func (f BrandFilter) payload() map[string]interface{} {
	p := map[string]interface{}{
		"sort":  "createdAt",
		"order": "desc",
	}
	if f.DisplayStatus != "" {
		p["displayStatus"] = f.DisplayStatus
	}
	if len(f.Provider) > 0 {
		p["provider"] = f.Provider
	}
	if len(f.Platform) > 0 {
		p["platform"] = f.Platform
	}
	if f.Name != "" {
		p["name"] = f.Name
	}
	return p
}

// byName builds the filter used for single-brand runs.
func byName(name string) BrandFilter {
	return BrandFilter{Name: name}
}

// brandPresets maps preset keys to listing filters. One table entry per
// brand or connector instead of one query function per brand.
var brandPresets = map[string]BrandFilter{
	// by connector
	"shopify": {DisplayStatus: "live", Provider: []string{"shopify"}},

	// by connected platform
	"italist":       {DisplayStatus: "live", Platform: []string{"italist"}},
	"culture-kings": {DisplayStatus: "live", Platform: []string{"cultureKings"}},

	// by brand name
	"princess-polly":    byName("Princess Polly"),
	"refinery-no-1":     byName("Refinery Number One"),
	"rustic-marlin":     byName("Rustic Marlin"),
	"uniikpillows":      byName("UniikPillows"),
	"dog-hugs-cat":      byName("Dog Hugs Cat"),
	"lapopart":          byName("Los Angeles Pop Art"),
	"liberal-repellent": byName("Liberal Repellent"),
	"belt-rhinestone":   byName("Belt Rhinestone"),
	"thirdlove":         byName("Thirdlove"),
	"harpro":            byName("Harpro"),
	"galaxy-by-harvic":  byName("Galaxy By Harvic"),
	"mothersgold":       byName("Mothersgold"),
	"tic-toc":           byName("Tic Toc"),
	"pet-life":          byName("Pet Life"),
	"moomaya":           byName("Moomaya"),
	"leg-avenue":        byName("Leg Avenue"),
}

// PresetFilter looks up a configured brand preset by key.
func PresetFilter(key string) (BrandFilter, bool) {
	f, ok := brandPresets[key]
	return f, ok
}

// PresetKeys lists the known preset keys, for config validation messages.
func PresetKeys() []string {
	keys := make([]string, 0, len(brandPresets))
	for k := range brandPresets {
		keys = append(keys, k)
	}
	return keys
}
