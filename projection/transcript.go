// Package projection builds derived views from the authoritative message
// list. Transcripts are computed on demand and never read back as input, so
// they cannot drift from the store.
package projection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"rolling-paper/domain"
)

// Transcripts renders one human-readable transcript per group, oldest first,
// one "Author : Content" line per message. Private content is included: the
// transcript feeds the password-gated archive export, not the public list.
func Transcripts(messages []domain.Message) map[domain.Group]string {
	byGroup := lo.GroupBy(messages, func(m domain.Message) domain.Group { return m.Group })

	transcripts := make(map[domain.Group]string, len(byGroup))
	for group, groupMessages := range byGroup {
		sort.SliceStable(groupMessages, func(i, j int) bool {
			return groupMessages[i].Timestamp < groupMessages[j].Timestamp
		})
		var b strings.Builder
		for _, m := range groupMessages {
			fmt.Fprintf(&b, "%s : %s\n", m.Author, m.Content)
		}
		transcripts[group] = b.String()
	}
	return transcripts
}
