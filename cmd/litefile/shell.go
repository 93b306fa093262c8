package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardKnop/litefile"
	"github.com/RichardKnop/litefile/internal/pkg/util"
)

const (
	cliName      = "litefile"
	pagePreview  = 128
	helpColWidth = 25
)

type metaCommand int

const (
	Unknown metaCommand = iota + 1
	Help
	Open
	DBInfo
	ShowPage
	ShowBtree
	ShowFreelist
	ShowPtrmap
	ListTables
	ShowSchema
	Exit
)

var metaCommands = map[string]metaCommand{
	"help":     Help,
	"open":     Open,
	"dbinfo":   DBInfo,
	"page":     ShowPage,
	"btree":    ShowBtree,
	"freelist": ShowFreelist,
	"ptrmap":   ShowPtrmap,
	"tables":   ListTables,
	"schema":   ShowSchema,
	"quit":     Exit,
	"exit":     Exit,
}

var helpLines = []struct {
	command string
	usage   string
	help    string
}{
	{"btree", ".btree N", "Decode page N as a b-tree page and list its cells"},
	{"dbinfo", ".dbinfo", "Show status information about the database"},
	{"exit", ".exit", "Exit this program"},
	{"freelist", ".freelist", "List freelist trunk and leaf pages"},
	{"help", ".help ?COMMAND?", "Show help text for COMMAND or all commands"},
	{"open", ".open ?FILE?", "Close existing database and reopen FILE"},
	{"page", ".page N", "Show size, checksum and leading bytes of page N"},
	{"ptrmap", ".ptrmap N", "Show the pointer map entry of page N"},
	{"quit", ".quit", "Exit this program"},
	{"schema", ".schema", "Show the CREATE statements"},
	{"tables", ".tables", "List names of tables"},
}

type shell struct {
	out         io.Writer
	logger      *zap.Logger
	validation  litefile.ValidationMode
	interactive bool
	conn        *litefile.Conn
}

func newShell(out io.Writer, logger *zap.Logger, validation litefile.ValidationMode, interactive bool) *shell {
	return &shell{
		out:         out,
		logger:      logger,
		validation:  validation,
		interactive: interactive,
	}
}

func (s *shell) printPrompt() {
	if s.interactive {
		fmt.Fprint(s.out, cliName, "> ")
	}
}

func (s *shell) printError(err error) {
	fmt.Fprintf(s.out, "Error: %s\n", err)
}

// open replaces the current connection. An empty argument opens an in-memory
// database, anything else is a connection string.
func (s *shell) open(arg string) error {
	connStr := litefile.MemoryURI
	if arg != "" {
		connStr = arg
	}

	config, err := litefile.ParseConnectionString(connStr)
	if err != nil {
		return err
	}
	if !strings.Contains(connStr, "validation=") {
		config.Validation = s.validation
	}
	// the shell never writes, files open read-only unless a mode was asked for
	if !strings.Contains(connStr, "mode=") && config.Mode == litefile.ModeReadWrite {
		config.Mode = litefile.ModeReadOnly
	}

	aConn, err := litefile.OpenConfig(config, litefile.WithLogger(s.logger))
	if err != nil {
		return err
	}

	if err := s.Close(); err != nil {
		s.logger.Warn("failed to close previous database", zap.Error(err))
	}
	s.conn = aConn

	fmt.Fprintf(s.out, "Connected: [%s]\n", config.URI())
	return nil
}

// Close closes the current connection, if any.
func (s *shell) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Run reads commands until EOF, .quit or cancellation of ctx.
func (s *shell) Run(ctx context.Context, in io.Reader) error {
	reader := bufio.NewScanner(in)
	s.printPrompt()

	for reader.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		input := strings.TrimSpace(reader.Text())
		if input == "" {
			s.printPrompt()
			continue
		}

		if !isMetaCommand(input) {
			s.printError(errors.New(`SQL statements are not supported, enter ".help" for the available commands`))
			s.printPrompt()
			continue
		}

		name, args := splitMetaCommand(input)
		command := doMetaCommand(name)
		if command == Exit {
			return nil
		}
		if err := s.execute(command, name, args); err != nil {
			s.printError(err)
		}
		s.printPrompt()
	}

	if s.interactive {
		// Print an additional line if we encountered an EOF character
		fmt.Fprintln(s.out)
	}
	return reader.Err()
}

func isMetaCommand(input string) bool {
	return len(input) > 0 && input[:1] == "."
}

func splitMetaCommand(input string) (string, []string) {
	fields := strings.Fields(input[1:])
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

func doMetaCommand(name string) metaCommand {
	if command, ok := metaCommands[name]; ok {
		return command
	}
	return Unknown
}

func (s *shell) execute(command metaCommand, name string, args []string) error {
	switch command {
	case Help:
		return s.help(args)
	case Open:
		if len(args) > 1 {
			return fmt.Errorf("usage: .open ?FILE?")
		}
		return s.open(strings.Join(args, ""))
	case Unknown:
		return fmt.Errorf("unknown command or invalid arguments: %q, enter \".help\" for help", name)
	}

	if s.conn == nil {
		if err := s.open(""); err != nil {
			return err
		}
	}

	switch command {
	case DBInfo:
		return s.conn.DBInfo(s.out)
	case ListTables:
		return s.tables()
	case ShowSchema:
		return s.schema()
	case ShowFreelist:
		return s.freelist()
	}

	n, err := pageArgument("."+name, args)
	if err != nil {
		return err
	}
	switch command {
	case ShowPage:
		return s.page(n)
	case ShowBtree:
		return s.btree(n)
	case ShowPtrmap:
		return s.ptrmap(n)
	}
	return nil
}

func pageArgument(usage string, args []string) (litefile.PageNumber, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s N", usage)
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid page number %q", args[0])
	}
	return litefile.PageNumber(n), nil
}

func (s *shell) help(args []string) error {
	for _, line := range helpLines {
		if len(args) == 0 || strings.TrimPrefix(strings.ToLower(args[0]), ".") == line.command {
			fmt.Fprintf(s.out, "%-*s%s\n", helpColWidth, line.usage, line.help)
			if len(args) > 0 {
				return nil
			}
		}
	}
	if len(args) > 0 {
		return fmt.Errorf("no help for %q", args[0])
	}
	return nil
}

func (s *shell) tables() error {
	names, err := s.conn.Tables()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(s.out, name)
	}
	return nil
}

func (s *shell) schema() error {
	entries, err := s.conn.Schema()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.SQL != "" {
			fmt.Fprintf(s.out, "%s;\n", entry.SQL)
		}
	}
	return nil
}

func (s *shell) page(n litefile.PageNumber) error {
	aPage, err := s.conn.ReadPage(n)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "page %d: %d bytes, blake3 %s\n", aPage.Number, aPage.Len(), aPage.Checksum())
	fmt.Fprint(s.out, hex.Dump(aPage.Data()[:min(pagePreview, aPage.Len())]))
	return nil
}

func (s *shell) btree(n litefile.PageNumber) error {
	aPage, err := s.conn.BtreePage(n)
	if err != nil {
		return err
	}

	h := aPage.Header
	fmt.Fprintf(s.out, "page %d: %s, %d cells, content starts at %d, %d free bytes (%d fragmented)\n",
		aPage.Number, h.Type, h.CellCount, h.CellContentStart, aPage.FreeBytes(), h.FragmentedFreeBytes)
	if h.Type.IsInterior() {
		fmt.Fprintf(s.out, "right-most pointer: %d\n", h.RightMostPointer)
	}
	for _, block := range aPage.Freeblocks {
		fmt.Fprintf(s.out, "freeblock at %d: %d bytes\n", block.Offset, block.Size)
	}

	cells, err := aPage.Cells()
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		return nil
	}

	hasPayload := !h.Type.IsInterior() || !h.Type.IsTable()
	columns := []util.Column{{Name: "cell", Width: 5}, {Name: "offset", Width: 6}}
	if h.Type.IsInterior() {
		columns = append(columns, util.Column{Name: "left child"})
	}
	if h.Type.IsTable() {
		columns = append(columns, util.Column{Name: "rowid", Width: 20})
	}
	if hasPayload {
		columns = append(columns, util.Column{Name: "payload"}, util.Column{Name: "local"}, util.Column{Name: "overflow"})
	}

	util.PrintTableHeader(s.out, columns)
	for i, aCell := range cells {
		values := []any{i, aCell.Offset}
		if h.Type.IsInterior() {
			values = append(values, aCell.LeftChild)
		}
		if h.Type.IsTable() {
			values = append(values, aCell.RowID)
		}
		if hasPayload {
			var overflow any
			if aCell.HasOverflow() {
				overflow = aCell.FirstOverflowPage
			}
			values = append(values, aCell.PayloadSize, len(aCell.Payload), overflow)
		}
		util.PrintTableRow(s.out, columns, values)
	}
	util.PrintTableEnd(s.out, columns)
	return nil
}

func (s *shell) freelist() error {
	aFreelist, err := s.conn.Freelist()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d free pages in %d trunk pages\n", aFreelist.PageCount(), len(aFreelist.Trunks))
	for _, trunk := range aFreelist.Trunks {
		fmt.Fprintf(s.out, "trunk %d: %d leaves %v\n", trunk.Number, len(trunk.Leaves), trunk.Leaves)
	}
	return nil
}

func (s *shell) ptrmap(n litefile.PageNumber) error {
	entry, err := s.conn.PointerMapEntry(n)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "page %d: %s, parent %d\n", entry.Page, entry.Type, entry.Parent)
	return nil
}
