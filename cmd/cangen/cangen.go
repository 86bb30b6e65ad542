// Cangen generates fixed-layout C codecs from a CAN DBC database file.
//
// Usage:
//
//	cangen [-o dir] [-diag file.json] database.dbc
//
// One header and one source file are written, named after the database file.
// Signals the generator cannot support (float valued, multiplexed, wider
// than 64 bits) are excluded with a diagnostic; pass -diag to also get the
// diagnostics as a JSON report.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/gostdlib/base/context"
	"go.uber.org/zap"

	"github.com/y0rk9s/cangen/internal/dbc"
	"github.com/y0rk9s/cangen/internal/generate"
	"github.com/y0rk9s/cangen/internal/render"
	// Registers the C renderer.
	_ "github.com/y0rk9s/cangen/internal/render/c"
	"github.com/y0rk9s/cangen/internal/writer"
)

var (
	outDir   = flag.String("o", ".", "directory to write generated files to")
	diagPath = flag.String("diag", "", "write exclusion diagnostics as JSON to this file")
)

func main() {
	ctx := context.Background()

	flag.Parse()
	if flag.NArg() != 1 {
		exitf("usage: cangen [-o dir] [-diag file.json] database.dbc")
	}
	path := flag.Arg(0)

	log, err := zap.NewProduction()
	if err != nil {
		exitf("could not create logger: %s", err)
	}
	defer log.Sync()

	content, err := os.ReadFile(path)
	if err != nil {
		exitf("problem reading database file: %s", err)
	}

	db, err := dbc.Parse(ctx, string(content))
	if err != nil {
		exitf("problem parsing %s: %s", path, err)
	}

	res := generate.Generate(db)
	for _, d := range res.Diagnostics {
		log.Warn("signal excluded",
			zap.String("message", d.Message),
			zap.String("signal", d.Signal),
			zap.String("reason", d.Reason.String()),
		)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	files, err := render.Render(ctx, res, base, render.C)
	if err != nil {
		exit(err)
	}

	wr, err := writer.New(writer.WithDir(*outDir), writer.WithLogger(log))
	if err != nil {
		exit(err)
	}
	if err := wr.Write(ctx, files); err != nil {
		exit(err)
	}

	if *diagPath != "" {
		b, err := jsonv2.Marshal(res.Diagnostics)
		if err != nil {
			exitf("problem marshaling diagnostics: %s", err)
		}
		if err := os.WriteFile(*diagPath, b, 0600); err != nil {
			exitf("problem writing diagnostics report: %s", err)
		}
	}

	log.Info("generation complete",
		zap.Int("messages", len(res.Messages)),
		zap.Int("excluded", len(res.Diagnostics)),
		zap.String("fingerprint", fmt.Sprintf("%016x", res.Fingerprint)),
	)
}

func exit(i ...any) {
	fmt.Println(i...)
	os.Exit(1)
}

func exitf(s string, i ...any) {
	fmt.Printf(s+"\n", i...)
	os.Exit(1)
}
