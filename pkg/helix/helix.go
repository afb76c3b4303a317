// Package helix is the library-level facade over the compiler pipeline:
// parse, validate, materialize, compile, load, decompile, evaluate, and
// pretty-print, wired together so a caller never has to reach into
// pkg/lexer/pkg/parser/pkg/semantic/pkg/ir/pkg/binary directly for the
// common cases. Each function is a thin composition of the pipeline
// stage it names; none adds behavior the underlying package doesn't
// already implement.
package helix

import (
	"fmt"
	"io"

	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/binary"
	"github.com/cyber-boost/helix/pkg/config"
	"github.com/cyber-boost/helix/pkg/diag"
	"github.com/cyber-boost/helix/pkg/ir"
	"github.com/cyber-boost/helix/pkg/operator"
	"github.com/cyber-boost/helix/pkg/parser"
	"github.com/cyber-boost/helix/pkg/semantic"
	"github.com/cyber-boost/helix/pkg/value"
)

// Diagnostic re-exports pkg/diag's type at the facade level so callers
// using only pkg/helix never need to import pkg/diag themselves.
type Diagnostic = diag.Diagnostic

// Parse lexes and parses source into an AST. The returned diagnostics
// cover lexer and parser errors only; call Validate to run the semantic
// analyzer.
func Parse(source []byte, fileID string) (*ast.File, []Diagnostic) {
	return parser.ParseSource(source, fileID)
}

// Validate runs the semantic analyzer over an already-parsed file in
// non-strict mode (warnings for style issues, errors for anything that
// would make evaluation or codegen unsafe).
func Validate(file *ast.File) []Diagnostic {
	return semantic.New(file, false).Analyze()
}

// ASTToConfig materializes file into a Configuration. When evaluate is
// false, properties are converted literal-only and any expression
// needing runtime context is left as value.Null. When evaluate is true,
// ctx (a non-nil runtime context) drives a two-pass build: a first pass
// materializes the Configuration without evaluation so section
// references have something to resolve against, then an Evaluator bound
// to that Configuration re-materializes with evaluation enabled.
func ASTToConfig(file *ast.File, evaluate bool, ctx *operator.Context) (*config.Configuration, error) {
	if !evaluate {
		return config.FromAST(file, nil)
	}
	if ctx == nil {
		return nil, fmt.Errorf("helix: ASTToConfig: evaluate requested with a nil context")
	}
	eval := operator.New(ctx, nil, nil)
	raw, err := config.FromAST(file, nil)
	if err != nil {
		return nil, err
	}
	eval.BindConfiguration(raw)
	return config.FromAST(file, eval)
}

// Compile lowers file to IR, optimizes it at the requested level, and
// encodes it as a binary artifact under the given flags.
func Compile(file *ast.File, opt ir.OptLevel, flags binary.Flags) (*binary.Artifact, error) {
	prog := ir.Lower(file)
	prog = ir.Optimize(prog, opt, entrypointNames(file))

	bytes, err := binary.Compile(prog, binary.CompileOptions{
		Compression: flags.Compression,
		Checksum:    flags.ChecksumPresent,
		OptLevel:    flags.OptLevel,
	})
	if err != nil {
		return nil, err
	}
	return binary.NewArtifact(bytes)
}

// entrypointNames names every declared section as a DCE reachability
// root. Compile has no notion of an entrypoint list of its own (that's a
// CLI/caller concern left to a future flag), so it treats the whole file
// as live rather than silently dropping declarations a caller never
// meant to mark dead.
func entrypointNames(file *ast.File) []string {
	var names []string
	for _, d := range file.Declarations {
		if s, ok := d.(*ast.Section); ok && s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// Load opens a compiled artifact from r, reading exactly size bytes, and
// returns it ready for string/symbol/section lookups.
func Load(r io.ReaderAt, size int64) (*binary.LoadedConfig, error) {
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("helix: Load: %w", err)
	}
	return binary.Load(buf)
}

// LoadFile opens a compiled artifact from disk, mmap'ing it when the
// platform supports it.
func LoadFile(path string) (*binary.LoadedConfig, error) {
	return binary.Open(path)
}

// Decompile reconstructs an AST from a compiled artifact's bytes. The
// result is a best-effort reconstruction: see Loader.Decompile for the
// documented lossy cases (section leader spelling, subnames).
func Decompile(artifact *binary.Artifact) (*ast.File, error) {
	loaded, err := binary.Load(artifact.Bytes)
	if err != nil {
		return nil, err
	}
	defer loaded.Close()
	return loaded.Decompile()
}

// Evaluate runs the operator evaluator over a single expression against
// ctx. Used directly by callers that already have an ast.Expression in
// hand (e.g. a REPL) and don't want to materialize a whole Configuration
// for it.
func Evaluate(expr ast.Expression, ctx *operator.Context) (value.Value, error) {
	eval := operator.New(ctx, nil, nil)
	return eval.Eval(expr)
}

// PrettyPrint renders file as canonical Helix source.
func PrettyPrint(file *ast.File, style ast.PrintStyle) string {
	return ast.PrettyPrint(file, style)
}
