package gazetteer

import "github.com/newsatlas/hubcrawler/internal/hub"

// SeedEntities is the fallback entity set used when a gazetteer has no
// importance-ranked entities for a domain. It covers the globally most
// important countries and topics so a brand-new domain still produces
// candidates on the first planning cycle.
func SeedEntities(kind hub.EntityKind) []hub.Entity {
	switch kind {
	case hub.KindCountry:
		return seedCountries()
	case hub.KindTopic:
		return seedTopics()
	default:
		return nil
	}
}

func seedCountries() []hub.Entity {
	return []hub.Entity{
		{ID: "us", Kind: hub.KindCountry, Name: "United States", Slug: "united-states", Importance: 100, Aliases: []string{"usa", "us"}},
		{ID: "cn", Kind: hub.KindCountry, Name: "China", Slug: "china", Importance: 95},
		{ID: "gb", Kind: hub.KindCountry, Name: "United Kingdom", Slug: "united-kingdom", Importance: 90, Aliases: []string{"uk", "britain"}},
		{ID: "de", Kind: hub.KindCountry, Name: "Germany", Slug: "germany", Importance: 85},
		{ID: "fr", Kind: hub.KindCountry, Name: "France", Slug: "france", Importance: 84},
		{ID: "in", Kind: hub.KindCountry, Name: "India", Slug: "india", Importance: 83},
		{ID: "jp", Kind: hub.KindCountry, Name: "Japan", Slug: "japan", Importance: 82},
		{ID: "br", Kind: hub.KindCountry, Name: "Brazil", Slug: "brazil", Importance: 75},
		{ID: "ru", Kind: hub.KindCountry, Name: "Russia", Slug: "russia", Importance: 74},
		{ID: "ca", Kind: hub.KindCountry, Name: "Canada", Slug: "canada", Importance: 70},
	}
}

func seedTopics() []hub.Entity {
	return []hub.Entity{
		{ID: "politics", Kind: hub.KindTopic, Name: "Politics", Slug: "politics", Importance: 90},
		{ID: "business", Kind: hub.KindTopic, Name: "Business", Slug: "business", Importance: 85},
		{ID: "technology", Kind: hub.KindTopic, Name: "Technology", Slug: "technology", Importance: 80, Aliases: []string{"tech"}},
		{ID: "sport", Kind: hub.KindTopic, Name: "Sport", Slug: "sport", Importance: 75, Aliases: []string{"sports"}},
		{ID: "culture", Kind: hub.KindTopic, Name: "Culture", Slug: "culture", Importance: 60},
	}
}
