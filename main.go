package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cyber-boost/helix/logging"
	"github.com/cyber-boost/helix/pkg/ast"
	"github.com/cyber-boost/helix/pkg/binary"
	"github.com/cyber-boost/helix/pkg/diag"
	"github.com/cyber-boost/helix/pkg/helix"
	"github.com/cyber-boost/helix/pkg/ir"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")

		parseFile    = flag.String("parse", "", "Parse a .hlx file and report diagnostics")
		validateFile = flag.String("validate", "", "Parse and semantically validate a .hlx file")
		compileFile  = flag.String("compile", "", "Compile a .hlx file to a .hlxb binary artifact")
		decompileBin = flag.String("decompile", "", "Decompile a .hlxb binary artifact back to source")
		out          = flag.String("out", "", "Output path for -compile/-decompile (defaults to input path with swapped extension)")

		verbose = flag.Bool("verbose", false, "Enable verbose output")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("helix v0.1.0 - Helix configuration language toolchain")
		if *verbose {
			fmt.Println("Stages: lex -> parse -> validate -> evaluate -> compile -> load")
		}
		os.Exit(0)
	}

	if *showHelp || (*parseFile == "" && *validateFile == "" && *compileFile == "" && *decompileBin == "") {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *parseFile != "":
		os.Exit(runParse(*parseFile))
	case *validateFile != "":
		os.Exit(runValidate(*validateFile))
	case *compileFile != "":
		os.Exit(runCompile(*compileFile, *out, cfg))
	case *decompileBin != "":
		os.Exit(runDecompile(*decompileBin, *out))
	}
}

// reportDiagnostics prints each diagnostic to stderr and returns 1 if any
// is Error severity, 0 otherwise.
func reportDiagnostics(diags []diag.Diagnostic) int {
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if diag.HasErrors(diags) {
		return 1
	}
	return 0
}

func runParse(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		return 1
	}
	_, diags := helix.Parse(src, path)
	return reportDiagnostics(diags)
}

func runValidate(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		return 1
	}
	file, diags := helix.Parse(src, path)
	if code := reportDiagnostics(diags); code != 0 {
		return code
	}
	return reportDiagnostics(helix.Validate(file))
}

func runCompile(path, outPath string, cfg *Config) int {
	log := cfg.Logger().WithComponent("compile")
	log.Info("compiling", logging.LogField{Key: "path", Value: path})

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		return 1
	}
	file, diags := helix.Parse(src, path)
	if code := reportDiagnostics(diags); code != 0 {
		log.Error("parse failed", logging.LogField{Key: "path", Value: path})
		return code
	}
	if code := reportDiagnostics(helix.Validate(file)); code != 0 {
		log.Error("validation failed", logging.LogField{Key: "path", Value: path})
		return code
	}

	opts := cfg.CompileOptions()
	flags := binary.Flags{Compression: opts.Compression, ChecksumPresent: opts.Checksum, OptLevel: opts.OptLevel}
	artifact, err := helix.Compile(file, ir.OptLevel(opts.OptLevel), flags)
	if err != nil {
		log.ErrorExecution(err, logging.LogField{Key: "path", Value: path})
		fmt.Fprintf(os.Stderr, "compile error: %v\n", err)
		return 1
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(path, ".hlx") + ".hlxb"
	}
	if err := os.WriteFile(outPath, artifact.Bytes, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outPath, err)
		return 1
	}
	log.Info("compiled", logging.LogField{Key: "out", Value: outPath}, logging.LogField{Key: "bytes", Value: len(artifact.Bytes)})
	fmt.Printf("wrote %s (%d bytes)\n", outPath, len(artifact.Bytes))
	return 0
}

func runDecompile(path, outPath string) int {
	bytesRead, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		return 1
	}
	artifact, err := binary.NewArtifact(bytesRead)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	file, err := helix.Decompile(artifact)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decompile error: %v\n", err)
		return 1
	}

	src := helix.PrettyPrint(file, ast.PrintStyle{})
	if outPath == "" {
		fmt.Print(src)
		return 0
	}
	if err := os.WriteFile(outPath, []byte(src), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outPath, err)
		return 1
	}
	fmt.Printf("wrote %s\n", outPath)
	return 0
}
