package litefile

import (
	"fmt"
	"io"
	"strings"

	"github.com/RichardKnop/litefile/internal/litefile"
)

const dbInfoLabelWidth = 21

type dbInfoWriter struct {
	b strings.Builder
}

func (w *dbInfoWriter) field(label string, value any) {
	fmt.Fprintf(&w.b, "%-*s%v\n", dbInfoLabelWidth, label+":", value)
}

// WriteDBInfo prints the header report of the .dbinfo shell command.
func WriteDBInfo(w io.Writer, header litefile.FileHeader) error {
	info := new(dbInfoWriter)
	writeHeaderInfo(info, header)
	_, err := io.WriteString(w, info.b.String())
	return err
}

func writeHeaderInfo(info *dbInfoWriter, header litefile.FileHeader) {
	incremental := 0
	if header.IncrementalVacuum {
		incremental = 1
	}

	info.field("database page size", header.PageSize.Int())
	info.field("write format", uint8(header.WriteVersion))
	info.field("read format", uint8(header.ReadVersion))
	info.field("reserved bytes", header.ReservedBytes)
	info.field("file change counter", header.FileChangeCounter)
	info.field("database page count", header.PageCount)
	info.field("freelist page count", header.FreelistPageCount)
	info.field("schema cookie", header.SchemaCookie)
	info.field("schema format", uint32(header.SchemaFormat))
	info.field("default cache size", header.SuggestedCacheSize)
	info.field("autovacuum top root", uint32(header.LargestRootPage))
	info.field("incremental vacuum", incremental)
	info.field("text encoding", fmt.Sprintf("%d (%s)", uint32(header.TextEncoding), header.TextEncoding))
	info.field("user version", header.UserVersion)
	info.field("application id", header.ApplicationID)
	info.field("software version", header.WriteLibraryVersion)
}

// DBInfo writes the header report followed by schema object counts.
func (c *Conn) DBInfo(w io.Writer) error {
	entries, err := c.Schema()
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	schemaSize := 0
	for _, entry := range entries {
		counts[entry.Type]++
		schemaSize += len(entry.SQL)
	}

	info := new(dbInfoWriter)
	writeHeaderInfo(info, c.Header())
	info.field("number of tables", counts["table"])
	info.field("number of indexes", counts["index"])
	info.field("number of triggers", counts["trigger"])
	info.field("number of views", counts["view"])
	info.field("schema size", schemaSize)

	_, err = io.WriteString(w, info.b.String())
	return err
}
