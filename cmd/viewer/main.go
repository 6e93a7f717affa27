package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"rolling-paper/repositories"
)

// Read-only board inspector. BypassLockGuard allows opening the database
// while the server process holds the lock.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	group := flag.String("group", "", "Only show this group")
	flag.Parse()

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	store := repositories.NewBadgerStore(db, logs.GetLoggerFromString("WARNING"))
	messages, err := store.ListAll()
	if err != nil {
		log.Fatalf("Failed to list messages: %v", err)
	}
	groups, err := store.GroupsPresent()
	if err != nil {
		log.Fatalf("Failed to list groups: %v", err)
	}

	header := color.New(color.BgBlack, color.FgGreen).
		Render(fmt.Sprintf(" Rolling paper — %d message(s) across %d group(s) ", len(messages), len(groups)))
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Group", "When", "Author", "Content", "Likes", "Private"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range messages {
		if *group != "" && !strings.EqualFold(*group, string(m.Group)) {
			continue
		}

		displayID := m.ID
		if len(displayID) > 8 {
			displayID = displayID[:8]
		}
		content := m.Content
		private := ""
		if m.IsPrivate {
			content = color.Gray.Render("(private)")
			private = "yes"
		}

		table.Append([]string{
			displayID,
			string(m.Group),
			time.UnixMilli(m.Timestamp).Format("02 Jan 15:04:05"),
			m.Author,
			content,
			fmt.Sprintf("%d", m.Likes),
			private,
		})
	}

	table.Render()
}
