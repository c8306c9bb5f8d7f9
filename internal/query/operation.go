package query

import (
	"github.com/roach88/fragio/internal/ioerr"
)

// Operation selects the translation rule set for a submission query.
type Operation int

const (
	CreateFragSelect Operation = iota + 1
	CreateFragSelectFile
	CreateFrag
	DropFrag
	CreateDatabase
	DropDatabase
	Insert
	MultiInsert
	FileImport
	InsertSelect
	RandomImport
	Select
	Function
)

var operationTags = map[Operation]string{
	CreateFragSelect:     "create_frag_select",
	CreateFragSelectFile: "create_frag_select_file",
	CreateFrag:           "create_frag",
	DropFrag:             "drop_frag",
	CreateDatabase:       "create_database",
	DropDatabase:         "drop_database",
	Insert:               "insert",
	MultiInsert:          "multi_insert",
	FileImport:           "file_import",
	InsertSelect:         "insert_select",
	RandomImport:         "random_import",
	Select:               "select",
	Function:             "function",
}

var operationsByTag = func() map[string]Operation {
	m := make(map[string]Operation, len(operationTags))
	for op, tag := range operationTags {
		m[tag] = op
	}
	return m
}()

// String returns the submission tag of the operation.
func (o Operation) String() string {
	if tag, ok := operationTags[o]; ok {
		return tag
	}
	return "unknown"
}

// ParseOperation maps a submission tag to its Operation.
// An unknown tag is an InvalidParameter error.
func ParseOperation(tag string) (Operation, error) {
	op, ok := operationsByTag[tag]
	if !ok {
		return 0, ioerr.New(ioerr.InvalidParameter, "unknown operation %q", tag)
	}
	return op, nil
}

// Operations returns every operation in declaration order.
func Operations() []Operation {
	ops := make([]Operation, 0, len(operationTags))
	for op := CreateFragSelect; op <= Function; op++ {
		ops = append(ops, op)
	}
	return ops
}
