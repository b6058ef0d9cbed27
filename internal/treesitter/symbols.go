package treesitter

var functionKinds = map[string]bool{
	"function_declaration":           true, // JS/TS, Go
	"generator_function_declaration": true,
	"function_definition":            true, // Python
	"method_definition":              true, // JS/TS class bodies
	"method_declaration":             true, // Go
}

var classKinds = map[string]bool{
	"class_declaration":          true, // JS/TS
	"abstract_class_declaration": true,
	"class_definition":           true, // Python
}

var importKinds = map[string]bool{
	"import_statement":      true, // JS/TS, Python
	"import_from_statement": true, // Python
	"import_declaration":    true, // Go
}

var callKinds = map[string]bool{
	"call_expression": true, // JS/TS, Go
	"call":            true, // Python
}

// IsFunctionKind reports whether a node kind declares a function or method.
func IsFunctionKind(kind string) bool { return functionKinds[kind] }

// IsClassKind reports whether a node kind declares a class.
func IsClassKind(kind string) bool { return classKinds[kind] }

// DeclName returns the text of the node's "name" field, or "" when absent.
func DeclName(n Node, content []byte) string {
	return Text(n.ChildByFieldName("name"), content)
}

// Call is a call site: the callee expression text and where the call starts.
type Call struct {
	Callee    string
	StartByte int
}

// Symbols are the raw per-file facts used to seed cross-file edges.
// Nothing here is resolved; an import is its full statement text and a
// call is its callee expression text.
type Symbols struct {
	Functions []string
	Classes   []string
	Imports   []string
	Calls     []Call
}

// ExtractSymbols walks every node under root (anonymous nodes included)
// using an explicit stack. A nil root yields empty Symbols. Grammars that
// use none of the recognized node kinds also yield empty Symbols.
func ExtractSymbols(root Node, content []byte) Symbols {
	var syms Symbols
	if root == nil {
		return syms
	}

	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kind := n.Kind()
		switch {
		case functionKinds[kind]:
			if name := DeclName(n, content); name != "" {
				syms.Functions = append(syms.Functions, name)
			}
		case classKinds[kind]:
			if name := DeclName(n, content); name != "" {
				syms.Classes = append(syms.Classes, name)
			}
		case importKinds[kind]:
			syms.Imports = append(syms.Imports, Text(n, content))
		case callKinds[kind]:
			callee := n.ChildByFieldName("function")
			if callee == nil && n.ChildCount() > 0 {
				callee = n.Child(0)
			}
			if callee != nil {
				syms.Calls = append(syms.Calls, Call{Callee: Text(callee, content), StartByte: n.StartByte()})
			}
		}

		// reverse push keeps document order on pop
		for i := n.ChildCount() - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return syms
}
