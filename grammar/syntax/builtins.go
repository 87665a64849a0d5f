package syntax

// Signature describes a built-in primitive's calling convention. It carries
// enough information for the parser and evaluator to check arity before
// dispatching into the registry; the registry itself supplies the
// implementation.
type Signature struct {
	Name         string
	RequiredArgs int
	// VariableArity means any number of arguments >= RequiredArgs is legal
	// (used by Replace and the n-ary forms).
	VariableArity bool
}

// BuiltInFunctions holds the calling signature of every function-registry
// primitive named in the grammar language, keyed by name. It does not hold
// implementations; those live in package registry.
var BuiltInFunctions = map[string]Signature{
	"Concat":           {Name: "Concat", RequiredArgs: 2},
	"Union":            {Name: "Union", RequiredArgs: 2},
	"UnionDelayed":     {Name: "UnionDelayed", RequiredArgs: 2},
	"Difference":       {Name: "Difference", RequiredArgs: 2},
	"Compose":          {Name: "Compose", RequiredArgs: 2, VariableArity: true},
	"Rewrite":          {Name: "Rewrite", RequiredArgs: 2},
	"Closure":          {Name: "Closure", RequiredArgs: 2, VariableArity: true},
	"Determinize":      {Name: "Determinize", RequiredArgs: 1},
	"Minimize":         {Name: "Minimize", RequiredArgs: 1},
	"RmEpsilon":        {Name: "RmEpsilon", RequiredArgs: 1},
	"RmWeight":         {Name: "RmWeight", RequiredArgs: 1},
	"Invert":           {Name: "Invert", RequiredArgs: 1},
	"Project":          {Name: "Project", RequiredArgs: 2},
	"ArcSort":          {Name: "ArcSort", RequiredArgs: 2},
	"Optimize":         {Name: "Optimize", RequiredArgs: 1},
	"Expand":           {Name: "Expand", RequiredArgs: 1},
	"StringFst":        {Name: "StringFst", RequiredArgs: 2, VariableArity: true},
	"LoadFst":          {Name: "LoadFst", RequiredArgs: 1},
	"LoadFstFromFar":   {Name: "LoadFstFromFar", RequiredArgs: 2},
	"SymbolTable":      {Name: "SymbolTable", RequiredArgs: 1},
	"LenientlyCompose": {Name: "LenientlyCompose", RequiredArgs: 3},
	"Replace":          {Name: "Replace", RequiredArgs: 2, VariableArity: true},
	"AssertEqual":      {Name: "AssertEqual", RequiredArgs: 2},
	"AssertEmpty":      {Name: "AssertEmpty", RequiredArgs: 1},
	"AssertNull":       {Name: "AssertNull", RequiredArgs: 1},
	"StringFile":       {Name: "StringFile", RequiredArgs: 2},
}

// ReservedNames may not be used as a user-defined rule, function, or alias
// name.
var ReservedNames = map[string]bool{
	"*StringFstSymbolTable": true,
	"BOS":                   true,
	"EOS":                   true,
}
