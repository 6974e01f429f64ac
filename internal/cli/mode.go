package cli

// Mode selects the single operation one invocation performs.
type Mode int

const (
	ModeInvalid Mode = iota
	ModeCreateSchema
	ModeAdd
	ModeListAll
	ModeImport
	ModeQuery
)

// ParseMode decodes the positional argument. Only the literal strings "1"
// through "5" are recognized.
func ParseMode(s string) Mode {
	switch s {
	case "1":
		return ModeCreateSchema
	case "2":
		return ModeAdd
	case "3":
		return ModeListAll
	case "4":
		return ModeImport
	case "5":
		return ModeQuery
	default:
		return ModeInvalid
	}
}

func (m Mode) String() string {
	switch m {
	case ModeCreateSchema:
		return "create-schema"
	case ModeAdd:
		return "add"
	case ModeListAll:
		return "list-all"
	case ModeImport:
		return "import"
	case ModeQuery:
		return "query"
	default:
		return "invalid"
	}
}
