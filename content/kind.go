package content

import "fmt"

// FieldKind is the closed set of field kinds the walkers understand.
type FieldKind int

const (
	FieldPlainText FieldKind = iota + 1
	FieldRichText
	FieldStream
	FieldForeignKey
	FieldChildRelation
	FieldCustom
	FieldManyToMany
	FieldValue
)

var fieldKindNames = map[FieldKind]string{
	FieldPlainText:     "plain_text",
	FieldRichText:      "rich_text",
	FieldStream:        "stream",
	FieldForeignKey:    "foreign_key",
	FieldChildRelation: "child_relation",
	FieldCustom:        "custom",
	FieldManyToMany:    "many_to_many",
	FieldValue:         "value",
}

func (k FieldKind) String() string {
	if name, ok := fieldKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// ParseFieldKind parses a schema field kind name.
func ParseFieldKind(s string) (FieldKind, error) {
	for k, name := range fieldKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// BlockKind is the closed set of stream block kinds.
type BlockKind int

const (
	BlockChar BlockKind = iota + 1
	BlockText
	BlockRichText
	BlockStruct
	BlockList
	BlockStream
	BlockChooser
	BlockValue
	BlockCustom
	BlockUnknown
)

var blockKindNames = map[BlockKind]string{
	BlockChar:     "char",
	BlockText:     "text",
	BlockRichText: "rich_text",
	BlockStruct:   "struct",
	BlockList:     "list",
	BlockStream:   "stream",
	BlockChooser:  "chooser",
	BlockValue:    "value",
	BlockCustom:   "custom",
	BlockUnknown:  "unknown",
}

func (k BlockKind) String() string {
	if name, ok := blockKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("BlockKind(%d)", int(k))
}

// ParseBlockKind parses a schema block kind name. Names outside the known
// set map to BlockUnknown so that a schema can declare third party blocks
// and still fail loudly when one is walked without a hook.
func ParseBlockKind(s string) BlockKind {
	for k, name := range blockKindNames {
		if name == s {
			return k
		}
	}
	return BlockUnknown
}
