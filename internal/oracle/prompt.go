package oracle

import (
	"fmt"
	"strings"
)

const systemPrompt = `You match product feed data to the eMAG marketplace catalog. ` +
	`Reply with ONLY a JSON object of the form {"match": "<option>"} where <option> ` +
	`is copied exactly from the list you are given, or "UNKNOWN" when nothing fits.`

func attributePrompt(name string, candidates []string) string {
	var b strings.Builder
	b.WriteString("Find the marketplace attribute that corresponds to the feed attribute.\n\n")
	fmt.Fprintf(&b, "Feed attribute: %q\n\n", name)
	b.WriteString("Marketplace attributes:\n")
	writeList(&b, candidates)
	b.WriteString("\nIf there is no equivalent, answer \"UNKNOWN\".")
	return b.String()
}

func valuePrompt(attribute, value string, allowed []string) string {
	var b strings.Builder
	b.WriteString("Find the allowed value closest to the feed value.\n\n")
	fmt.Fprintf(&b, "Attribute: %q\n", attribute)
	fmt.Fprintf(&b, "Feed value: %q\n\n", value)
	b.WriteString("Allowed values:\n")
	writeList(&b, allowed)
	b.WriteString("\nIf there is no match, answer \"UNKNOWN\".")
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteByte('\n')
	}
}
