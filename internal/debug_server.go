// Package internal hosts the operator-facing debug inspector: a minimal
// HTML view over the raw badger keyspace, reachable only when the server
// runs at debug level.
package internal

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type InspectRow struct {
	Key     string
	Group   string
	When    string
	Author  string
	Detail  string
	Likes   string
	Private string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

const inspectPage = `<!DOCTYPE html>
<html>
<head>
<title>Board inspector</title>
<style>
body { font-family: monospace; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
th { background: #222; color: #7f7; }
.stats { margin-bottom: 1em; color: #555; }
</style>
</head>
<body>
<h2>Board inspector — prefix "{{.Prefix}}"</h2>
<div class="stats">
{{range $k, $v := .Stats}}<span>{{$k}}: {{$v}}&nbsp;&nbsp;</span>{{end}}
</div>
<table>
<tr><th>Key</th><th>Group</th><th>When</th><th>Author</th><th>Detail</th><th>Likes</th><th>Private</th></tr>
{{range .Items}}
<tr><td>{{.Key}}</td><td>{{.Group}}</td><td>{{.When}}</td><td>{{.Author}}</td><td>{{.Detail}}</td><td>{{.Likes}}</td><td>{{.Private}}</td></tr>
{{end}}
</table>
</body>
</html>`

// StartDebugServer serves the inspector on its own port, outside the public
// API surface. The mapper renders one row per stored value; passing nil
// falls back to a key-only view.
func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.New("inspect").Parse(inspectPage))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// DefaultMapper decodes nothing: it only splits the "msg:{ts}:{id}" key
// layout so the inspector stays usable even on corrupt values.
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.SplitN(key, ":", 3)
	row := InspectRow{
		Key:     key,
		Group:   "-",
		When:    "--:--:--",
		Author:  "-",
		Detail:  "Size: " + strconv.Itoa(len(val)) + " bytes",
		Likes:   "-",
		Private: "-",
	}

	if len(parts) == 3 {
		if tsMilli, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			row.When = time.UnixMilli(tsMilli).Format("15:04:05")
		}
		row.Author = parts[2]
		if len(row.Author) > 8 {
			row.Author = row.Author[:8]
		}
	}
	return row
}
