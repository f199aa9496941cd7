package pipeline

// Tags is the fixed allow-list of technology tags the processing step is
// permitted to persist. Anything else coming back from the model is dropped.
var Tags = []string{
	"react",
	"nextjs",
	"nestjs",
	"api",
	"hono",
	"elysia",
	"node",
	"express",
	"javascript",
	"typescript",
	"drizzle",
	"prisma",
	"postgresql",
	"sql",
	"mongodb",
	"sqlite",
	"golang",
	"c",
	"microservices",
	"vue",
	"angular",
	"svelte",
	"remix",
	"astro",
}

// filterTags keeps allow-listed tags in their original order and drops
// duplicates.
func filterTags(tags []string, allowed []string) []string {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, tag := range allowed {
		allowedSet[tag] = struct{}{}
	}

	seen := make(map[string]struct{}, len(tags))
	kept := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := allowedSet[tag]; !ok {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		kept = append(kept, tag)
	}

	return kept
}
