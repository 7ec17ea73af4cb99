package policy

// Kind is the value type a schema key is coerced to.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Key names a per-message policy setting.
type Key string

const (
	KeySPFSeedOnly        Key = "SPFSEEDONLY"
	KeyGreylistTime       Key = "GREYLISTTIME"
	KeyCheckers           Key = "CHECKERS"
	KeyOtherConfigs       Key = "OTHERCONFIGS"
	KeyGreylistExpireDays Key = "GREYLISTEXPIREDAYS"
	KeyCheckGreylist      Key = "CHECKGREYLIST"
	KeyCheckSPF           Key = "CHECKSPF"
)

// Schema maps every recognised key to its value kind. Keys missing from
// the schema are rejected when a policy file is parsed.
type Schema map[Key]Kind

// DefaultSchema is the closed set of keys accepted in policy files.
func DefaultSchema() Schema {
	return Schema{
		KeySPFSeedOnly:        KindInt,
		KeyGreylistTime:       KindInt,
		KeyCheckers:           KindString,
		KeyOtherConfigs:       KindString,
		KeyGreylistExpireDays: KindFloat,
		KeyCheckGreylist:      KindInt,
		KeyCheckSPF:           KindInt,
	}
}

// Lookup returns the kind declared for name.
func (s Schema) Lookup(name string) (Key, Kind, bool) {
	key := Key(name)
	kind, ok := s[key]
	return key, kind, ok
}
