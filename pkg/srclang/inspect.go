package srclang

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
)

// DumpTokens renders toks as a table (index, kind, lexeme, line), backing
// the driver's `--emit tokens` option.
func DumpTokens(w io.Writer, toks []Token) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "TYPE", "LEXEME", "LINE"})
	for i, t := range toks {
		table.Append([]string{strconv.Itoa(i), t.Type.String(), t.Lexeme, strconv.Itoa(t.Line)})
	}
	table.Render()
}

// DumpAST renders prog with github.com/davecgh/go-spew, backing the
// driver's `--emit ast` and `--emit typed`/`--emit optimised` options: the
// same dump format is reused at every stage since the tree's shape doesn't
// change, only the Type fields it carries.
func DumpAST(w io.Writer, prog *ProgramDecl) {
	spew.Fdump(w, prog)
}

// DumpSymbolTable renders every declared root-scope name and its type or
// signature as a table, backing the driver's `--emit symtab` option. Only
// the root scope is inspectable this way since procedure-local scopes are
// popped by the time checking finishes (see SymbolTable.ExitScope).
func DumpSymbolTable(w io.Writer, syms *SymbolTable) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"NAME", "KIND", "TYPE"})

	root := syms.scopes[0]
	names := make([]string, 0, len(root))
	for name := range root {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sym := root[name]
		switch sym.Kind {
		case SymVar:
			table.Append([]string{name, "var", sym.VarType.String()})
		case SymProc:
			table.Append([]string{name, "procedure", procSignatureString(sym.Proc)})
		}
	}
	table.Render()
}

func procSignatureString(sig *ProcSignature) string {
	s := "("
	for i, p := range sig.Params {
		if i > 0 {
			s += ", "
		}
		dir := "in"
		if p.Direction == OUT {
			dir = "out"
		}
		s += fmt.Sprintf("%s %s", dir, p.Type)
	}
	return s + fmt.Sprintf(") -> %s", sig.Return)
}
