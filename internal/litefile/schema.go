package litefile

import (
	"fmt"
)

// SchemaRootPage is the root page of the sqlite_schema table.
const SchemaRootPage PageNumber = 1

const schemaColumnCount = 5

// SchemaEntry is one row of sqlite_schema. Only what is needed to locate the
// root page of a table or index is decoded, the SQL text is kept verbatim.
type SchemaEntry struct {
	Type      string // table, index, view or trigger
	Name      string
	TableName string
	RootPage  PageNumber // 0 for views and triggers
	SQL       string     // empty for automatic indexes
}

// ReadSchema walks the sqlite_schema table b-tree and returns its rows in rowid order.
func ReadSchema(r PageReader, header FileHeader) ([]SchemaEntry, error) {
	var entries []SchemaEntry

	err := WalkTable(r, SchemaRootPage, header.UsableSize(), func(rowID int64, payload []byte) error {
		entry, err := decodeSchemaEntry(payload, header.TextEncoding)
		if err != nil {
			return fmt.Errorf("schema row %d: %w", rowID, err)
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func decodeSchemaEntry(payload []byte, encoding TextEncoding) (SchemaEntry, error) {
	aRecord, err := DecodeRecord(payload)
	if err != nil {
		return SchemaEntry{}, err
	}
	if len(aRecord) != schemaColumnCount {
		return SchemaEntry{}, fieldError(FieldRecord, "schema record has %d columns, expected %d", len(aRecord), schemaColumnCount)
	}

	var entry SchemaEntry
	for i, dst := range []*string{&entry.Type, &entry.Name, &entry.TableName} {
		if *dst, err = aRecord[i].Text(encoding); err != nil {
			return SchemaEntry{}, err
		}
	}

	switch aRecord[3].Type {
	case ValueInteger:
		if aRecord[3].Int < 0 || aRecord[3].Int > int64(MaxPageNumber) {
			return SchemaEntry{}, fieldError(FieldRecord, "root page %d out of range", aRecord[3].Int)
		}
		entry.RootPage = PageNumber(aRecord[3].Int)
	case ValueNull:
	default:
		return SchemaEntry{}, fieldError(FieldRecord, "root page column has type %s", aRecord[3].Type)
	}

	if aRecord[4].Type != ValueNull {
		if entry.SQL, err = aRecord[4].Text(encoding); err != nil {
			return SchemaEntry{}, err
		}
	}

	return entry, nil
}

// TableRowFunc receives the rowid and complete payload of each table row.
type TableRowFunc func(rowID int64, payload []byte) error

// WalkTable visits every row of the table b-tree rooted at root in key order.
// Visiting a page twice means the tree is corrupt.
func WalkTable(r PageReader, root PageNumber, usableSize int, fn TableRowFunc) error {
	visited := make(map[PageNumber]struct{})
	return walkTablePage(r, root, usableSize, visited, fn)
}

func walkTablePage(r PageReader, n PageNumber, usableSize int, visited map[PageNumber]struct{}, fn TableRowFunc) error {
	if _, ok := visited[n]; ok {
		return fieldError(FieldBtreePageHeader, "b-tree page %d is referenced twice", n)
	}
	visited[n] = struct{}{}

	aPage, err := BtreePageReader(r, n, usableSize)
	if err != nil {
		return fmt.Errorf("b-tree page %d: %w", n, err)
	}
	if !aPage.Header.Type.IsTable() {
		return fieldError(FieldBtreePageType, "page %d is a %s page inside a table b-tree", n, aPage.Header.Type)
	}

	if aPage.Header.Type.IsInterior() {
		children, err := aPage.Children()
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := walkTablePage(r, child, usableSize, visited, fn); err != nil {
				return err
			}
		}
		return nil
	}

	cells, err := aPage.Cells()
	if err != nil {
		return err
	}
	for _, aCell := range cells {
		payload, err := aCell.FullPayload(r, usableSize)
		if err != nil {
			return err
		}
		if err := fn(aCell.RowID, payload); err != nil {
			return err
		}
	}
	return nil
}
