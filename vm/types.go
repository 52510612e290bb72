package vm

// InterpretResult is the guest's verdict on an Interpret or Call.
type InterpretResult uint32

const (
	ResultSuccess InterpretResult = iota
	ResultCompileError
	ResultRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultCompileError:
		return "compile error"
	case ResultRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// ValueType identifies what a slot holds. Values mirror the C enum; a slot
// holding an internal type the API cannot express reports TypeUnknown.
type ValueType uint32

const (
	TypeBool ValueType = iota
	TypeNum
	TypeForeign
	TypeList
	TypeMap
	TypeNull
	TypeString
	TypeUnknown
)

func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeNum:
		return "num"
	case TypeForeign:
		return "foreign"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	case TypeNull:
		return "null"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// ErrorKind classifies a message arriving through the error callback.
// Values mirror the C enum.
type ErrorKind int32

const (
	// ErrorCompile is a syntax or resolution error with module and line.
	ErrorCompile ErrorKind = iota
	// ErrorRuntime is the error message of an aborted fiber.
	ErrorRuntime
	// ErrorStackTrace is one frame of the trace following a runtime error.
	ErrorStackTrace
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorCompile:
		return "compile"
	case ErrorRuntime:
		return "runtime"
	case ErrorStackTrace:
		return "stack trace"
	default:
		return "unknown"
	}
}
